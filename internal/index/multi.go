package index

import (
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Signature returns the identity of a property set: the sorted names joined
// by a unit separator. Two constraint sets over the same properties share a
// signature regardless of order.
func Signature(names []string) string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x1f")
}

// Multi indexes a tuple of properties.
type Multi struct {
	names []string
	t     table[string]
}

// NewMulti returns a disabled index over names. Names are stored sorted;
// tuple keys must list values in that order.
func NewMulti(names []string) *Multi {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return &Multi{names: sorted, t: newTable[string]()}
}

// Names returns the indexed property names in key order.
func (m *Multi) Names() []string { return slices.Clone(m.names) }

// Enabled reports whether the index is being maintained.
func (m *Multi) Enabled() bool { return m.t.enabled }

// Enable backfills rows [0, n) using keyOf and starts maintenance.
// Enable on an enabled index is a no-op and returns false.
func (m *Multi) Enable(n int, keyOf func(row int) (string, bool)) bool {
	return m.t.backfill(n, keyOf)
}

// Insert adds a newly created row. No-op while disabled.
func (m *Multi) Insert(row int, key string) {
	if m.t.enabled {
		m.t.add(key, row)
	}
}

// Move relocates row between tuple buckets. No-op while disabled.
func (m *Multi) Move(row int, old string, hadOld bool, cur string, hasCur bool) {
	if m.t.enabled {
		m.t.move(row, old, hadOld, cur, hasCur)
	}
}

// Bucket returns the rows holding the tuple key, or nil.
func (m *Multi) Bucket(key string) *roaring.Bitmap {
	return m.t.bucket(key)
}

// Range calls fn for every non-empty bucket until fn returns false.
func (m *Multi) Range(fn func(key string, rows *roaring.Bitmap) bool) {
	for k, b := range m.t.buckets {
		if !fn(k, b) {
			return
		}
	}
}

// Stats summarizes the index.
func (m *Multi) Stats() Stats { return m.t.stats() }
