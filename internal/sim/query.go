package sim

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/roach88/simkernel/internal/index"
	"github.com/roach88/simkernel/internal/query"
	"github.com/roach88/simkernel/internal/random"
	"github.com/roach88/simkernel/internal/value"
)

// Term is one equality constraint of a Query.
type Term struct {
	ref     PropertyRef
	value   any
	resolve func(c *Context, es *entityStore) query.Term
}

type termSource[T comparable] interface {
	term(c *Context, es *entityStore, v T) query.Term
}

// Eq constrains p to equal v.
func Eq[T comparable](p TypedProperty[T], v T) Term {
	return Term{
		ref:   p,
		value: v,
		resolve: func(c *Context, es *entityStore) query.Term {
			return es.column(p).(termSource[T]).term(c, es, v)
		},
	}
}

// Query is a conjunction of equality constraints over one entity type.
// The empty conjunction matches every entity.
type Query struct {
	typ   *EntityType
	terms []Term
}

// Where builds a query over et. It panics if a term constrains a property
// of another entity type, which is a programming error.
func Where(et *EntityType, terms ...Term) Query {
	for _, t := range terms {
		if t.ref.EntityType() != et {
			panic(fmt.Sprintf("sim: query over %q constrains %s.%s", et.name, t.ref.EntityType().name, t.ref.Name()))
		}
	}
	return Query{typ: et, terms: slices.Clone(terms)}
}

// EntityType returns the queried entity type.
func (q Query) EntityType() *EntityType { return q.typ }

func (q Query) String() string {
	parts := make([]string, len(q.terms))
	for i, t := range q.terms {
		v, err := value.Format(t.value)
		if err != nil {
			v = fmt.Sprint(t.value)
		}
		parts[i] = t.ref.Name() + "=" + v
	}
	return q.typ.name + "{" + strings.Join(parts, ", ") + "}"
}

// plan resolves q against the current state. A type with no entities in
// this context yields an empty plan.
func (c *Context) plan(q Query) query.Plan {
	es := c.types[q.typ]
	if es == nil {
		return query.Build(0, nil, nil)
	}
	terms := make([]query.Term, len(q.terms))
	for i, t := range q.terms {
		terms[i] = t.resolve(c, es)
	}
	return query.Build(es.count, terms, c.exactMulti(es, q))
}

// exactMulti finds an enabled multi-property index over exactly the
// constrained property set.
func (c *Context) exactMulti(es *entityStore, q Query) *query.Exact {
	if len(q.terms) < 2 || len(es.multis) == 0 {
		return nil
	}
	names := make([]string, len(q.terms))
	for i, t := range q.terms {
		names[i] = t.ref.Name()
	}
	m, ok := es.multis[index.Signature(names)]
	if !ok || !m.idx.Enabled() {
		return nil
	}

	sorted := slices.Clone(q.terms)
	slices.SortFunc(sorted, func(a, b Term) int { return strings.Compare(a.ref.Name(), b.ref.Name()) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ref == sorted[i-1].ref {
			return nil
		}
	}
	vals := make([]any, len(sorted))
	for i, t := range sorted {
		vals[i] = t.value
	}
	key, ok := tupleKey(vals)
	if !ok {
		return nil
	}
	return &query.Exact{Signature: m.names(), Bucket: m.idx.Bucket(key)}
}

// Explain reports the strategy a query would use right now and the index
// that seeds it.
func (c *Context) Explain(q Query) (query.Strategy, string) {
	p := c.plan(q)
	return p.Strategy, p.Index
}

// Count returns the number of entities matching q.
func (c *Context) Count(q Query) int {
	return c.plan(q).Count()
}

// Iter returns the entities matching q in ascending row order. Every range
// over the sequence evaluates q afresh; writes made while ranging do not
// add or remove candidates of that pass, but are seen by its remaining
// constraint checks.
func (c *Context) Iter(q Query) iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for row := range c.plan(q).Rows() {
			if !yield(EntityID{typ: q.typ, row: row}) {
				return
			}
		}
	}
}

// ForEach calls fn for every entity matching q, in ascending row order.
// Matches are collected before the first call, so fn may change the
// properties q constrains. The first error stops the walk.
func (c *Context) ForEach(q Query, fn func(EntityID) error) error {
	rows := slices.Collect(c.plan(q).Rows())
	for _, row := range rows {
		if err := fn(EntityID{typ: q.typ, row: row}); err != nil {
			return err
		}
	}
	return nil
}

// SampleOne draws one matching entity uniformly from r. It reports false
// when nothing matches. For the same state and the same prior draws it
// returns the same entity whether or not indexes are enabled.
func (c *Context) SampleOne(r random.Sampler, q Query) (EntityID, bool) {
	row, ok := c.plan(q).Sample(r)
	if !ok {
		return EntityID{}, false
	}
	return EntityID{typ: q.typ, row: row}, true
}

// SampleMany draws up to k distinct matching entities, in ascending row
// order.
func (c *Context) SampleMany(r random.Sampler, q Query, k int) []EntityID {
	rows := c.plan(q).SampleMany(r, k)
	out := make([]EntityID, len(rows))
	for i, row := range rows {
		out[i] = EntityID{typ: q.typ, row: row}
	}
	return out
}

// Match reports whether e satisfies q.
func (c *Context) Match(e EntityID, q Query) bool {
	if e.typ != q.typ {
		return false
	}
	es, err := c.entity(e)
	if err != nil {
		return false
	}
	for _, t := range q.terms {
		if !t.resolve(c, es).Match(e.row) {
			return false
		}
	}
	return true
}

// Filter returns the entities that satisfy q, keeping their order.
func (c *Context) Filter(entities []EntityID, q Query) []EntityID {
	var out []EntityID
	for _, e := range entities {
		if c.Match(e, q) {
			out = append(out, e)
		}
	}
	return out
}
