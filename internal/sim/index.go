package sim

import (
	"fmt"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/roach88/simkernel/internal/index"
	"github.com/roach88/simkernel/internal/value"
)

// EnableIndex starts maintaining a value index for ref. The first call scans
// the current population once; later calls are no-ops. Queries never need an
// index, they only run faster with one.
func (c *Context) EnableIndex(ref PropertyRef) error {
	es, err := c.store(ref.EntityType())
	if err != nil {
		return err
	}
	if es.column(ref).enableIndex(c, es) {
		c.log.Debug("index enabled",
			"entity", es.typ.name,
			"property", ref.Name(),
			"rows", es.count)
	}
	return nil
}

// EnableMultiIndex starts maintaining an index keyed by the value tuple of
// refs, which must be two or more distinct properties of one entity type.
// It does not enable the single-property indexes of its components. Order
// of refs does not matter; enabling the same set twice is a no-op.
func (c *Context) EnableMultiIndex(refs ...PropertyRef) error {
	if len(refs) < 2 {
		return &Error{Code: ErrCodeInvalidProperty, Message: "multi-property index needs at least two properties"}
	}
	et := refs[0].EntityType()
	names := make([]string, len(refs))
	for i, ref := range refs {
		if ref.EntityType() != et {
			return &Error{
				Code:    ErrCodeInvalidProperty,
				Message: fmt.Sprintf("properties span entity types %q and %q", et.name, ref.EntityType().name),
				Name:    ref.Name(),
			}
		}
		names[i] = ref.Name()
	}
	if len(slices.Compact(slices.Sorted(slices.Values(names)))) != len(names) {
		return &Error{Code: ErrCodeInvalidProperty, Message: "multi-property index lists a property twice", Name: strings.Join(names, ",")}
	}

	es, err := c.store(et)
	if err != nil {
		return err
	}
	sig := index.Signature(names)
	m, ok := es.multis[sig]
	if !ok {
		sorted := slices.Clone(refs)
		slices.SortFunc(sorted, func(a, b PropertyRef) int { return strings.Compare(a.Name(), b.Name()) })
		m = &multiIndex{idx: index.NewMulti(names), refs: sorted}
		es.multis[sig] = m
		es.multiOrder = append(es.multiOrder, m)

		covered := make(map[int]bool)
		for _, ref := range sorted {
			for _, leaf := range ref.leaves() {
				if !covered[leaf.slot()] {
					covered[leaf.slot()] = true
					es.multiByProp[leaf.slot()] = append(es.multiByProp[leaf.slot()], m)
				}
			}
		}
	}

	if m.idx.Enable(es.count, func(row int) (string, bool) { return m.key(c, es, row) }) {
		c.log.Debug("multi-property index enabled",
			"entity", et.name,
			"properties", m.names(),
			"rows", es.count)
	}
	return nil
}

// IndexStats summarizes the single-property index of ref in this context.
func (c *Context) IndexStats(ref PropertyRef) index.Stats {
	es := c.types[ref.EntityType()]
	if es == nil || ref.slot() >= len(es.columns) || es.columns[ref.slot()] == nil {
		return index.Stats{}
	}
	return es.columns[ref.slot()].indexStats()
}

// IndexBuckets returns the size of every bucket of the index of ref, keyed
// by the display text of the bucket value. It is empty when ref is not
// indexed.
func (c *Context) IndexBuckets(ref PropertyRef) map[string]uint64 {
	es := c.types[ref.EntityType()]
	if es == nil || ref.slot() >= len(es.columns) || es.columns[ref.slot()] == nil {
		return map[string]uint64{}
	}
	return es.columns[ref.slot()].indexBuckets()
}

// MultiIndexBuckets returns the size of every bucket of the multi-property
// index over refs, keyed by tuple key text. Order of refs does not matter.
// It is empty when no such index exists.
func (c *Context) MultiIndexBuckets(refs ...PropertyRef) map[string]uint64 {
	out := make(map[string]uint64)
	if len(refs) == 0 {
		return out
	}
	es := c.types[refs[0].EntityType()]
	if es == nil {
		return out
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name()
	}
	m, ok := es.multis[index.Signature(names)]
	if !ok {
		return out
	}
	m.idx.Range(func(key string, rows *roaring.Bitmap) bool {
		out[key] = rows.GetCardinality()
		return true
	})
	return out
}

func bucketSizes[T comparable](idx *index.Single[T]) map[string]uint64 {
	out := make(map[string]uint64)
	if idx == nil {
		return out
	}
	idx.Range(func(v T, rows *roaring.Bitmap) bool {
		out[value.MustFormat(v)] = rows.GetCardinality()
		return true
	})
	return out
}

// tupleKey is the multi-property index key of vals, listed in sorted
// property-name order.
func tupleKey(vals []any) (string, bool) {
	key, err := value.Tuple(vals...)
	if err != nil {
		return "", false
	}
	return key, true
}
