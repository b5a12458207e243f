package query

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/roach88/simkernel/internal/random"
)

// Strategy identifies how a plan enumerates candidate rows.
type Strategy uint8

const (
	FullScan Strategy = iota
	SingleIndex
	MultiIndex
)

func (s Strategy) String() string {
	switch s {
	case FullScan:
		return "full-scan"
	case SingleIndex:
		return "single-index"
	case MultiIndex:
		return "multi-index"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// Term is one (property = value) constraint resolved against storage.
type Term struct {
	Name string

	// Match tests a row against the raw column.
	Match func(row int) bool

	// Indexed reports whether Bucket reflects an enabled index.
	Indexed bool

	// Bucket holds the rows whose value equals the constraint value.
	// nil means no row holds it.
	Bucket *roaring.Bitmap
}

// Exact is a multi-property index bucket covering the whole constraint set.
type Exact struct {
	Signature string
	Bucket    *roaring.Bitmap
}

// Plan is an evaluation strategy for one query against one population.
type Plan struct {
	Strategy Strategy

	// Index names the index that seeds the plan, empty for FullScan.
	Index string

	population int
	seed       *roaring.Bitmap
	filters    []func(row int) bool
}

// Build chooses the strategy for terms over a population of n rows.
// exact may be nil.
func Build(n int, terms []Term, exact *Exact) Plan {
	if exact != nil {
		return Plan{
			Strategy:   MultiIndex,
			Index:      exact.Signature,
			population: n,
			seed:       nonNil(exact.Bucket),
		}
	}

	best := -1
	for i, t := range terms {
		if !t.Indexed {
			continue
		}
		if best < 0 || cardinality(t.Bucket) < cardinality(terms[best].Bucket) {
			best = i
		}
	}

	if best < 0 {
		p := Plan{Strategy: FullScan, population: n}
		for _, t := range terms {
			p.filters = append(p.filters, t.Match)
		}
		return p
	}

	p := Plan{
		Strategy:   SingleIndex,
		Index:      terms[best].Name,
		population: n,
		seed:       nonNil(terms[best].Bucket),
	}
	for i, t := range terms {
		if i != best {
			p.filters = append(p.filters, t.Match)
		}
	}
	return p
}

func cardinality(b *roaring.Bitmap) uint64 {
	if b == nil {
		return 0
	}
	return b.GetCardinality()
}

func nonNil(b *roaring.Bitmap) *roaring.Bitmap {
	if b == nil {
		return roaring.New()
	}
	return b
}

// exact reports whether the seed alone is the result.
func (p Plan) exact() bool {
	return p.seed != nil && len(p.filters) == 0
}

func (p Plan) matches(row int) bool {
	for _, f := range p.filters {
		if !f(row) {
			return false
		}
	}
	return true
}

// Rows yields matching rows in ascending order. Each range over the sequence
// re-evaluates the plan against a snapshot of its seed bucket, so callers may
// write properties while iterating.
func (p Plan) Rows() iter.Seq[int] {
	return func(yield func(int) bool) {
		if p.seed == nil {
			for row := 0; row < p.population; row++ {
				if p.matches(row) && !yield(row) {
					return
				}
			}
			return
		}

		it := p.seed.Clone().Iterator()
		for it.HasNext() {
			row := int(it.Next())
			if p.matches(row) && !yield(row) {
				return
			}
		}
	}
}

// Count returns the number of matching rows.
func (p Plan) Count() int {
	if p.seed == nil && len(p.filters) == 0 {
		return p.population
	}
	if p.exact() {
		return int(p.seed.GetCardinality())
	}
	n := 0
	for range p.Rows() {
		n++
	}
	return n
}

// nth returns the k-th matching row in ascending order.
func (p Plan) nth(k int) (int, bool) {
	if p.seed == nil && len(p.filters) == 0 {
		return k, k < p.population
	}
	if p.exact() {
		row, err := p.seed.Select(uint32(k))
		if err != nil {
			return 0, false
		}
		return int(row), true
	}
	i := 0
	for row := range p.Rows() {
		if i == k {
			return row, true
		}
		i++
	}
	return 0, false
}

// Sample draws one matching row uniformly. It reports false, without
// consuming a draw, when nothing matches.
func (p Plan) Sample(r random.Sampler) (int, bool) {
	n := p.Count()
	if n == 0 {
		return 0, false
	}
	return p.nth(r.IntN(n))
}

// SampleMany draws up to k distinct matching rows uniformly, returned in
// ascending order. Fewer than k rows are returned when fewer match.
func (p Plan) SampleMany(r random.Sampler, k int) []int {
	n := p.Count()
	if n == 0 || k <= 0 {
		return nil
	}
	positions := random.Positions(r, n, k)

	out := make([]int, 0, len(positions))
	if p.exact() {
		for _, pos := range positions {
			row, err := p.seed.Select(uint32(pos))
			if err != nil {
				break
			}
			out = append(out, int(row))
		}
		return out
	}

	i, next := 0, 0
	for row := range p.Rows() {
		if next == len(positions) {
			break
		}
		if i == positions[next] {
			out = append(out, row)
			next++
		}
		i++
	}
	return out
}
