package index

import "github.com/RoaringBitmap/roaring/v2"

// Single indexes one property of value type T.
type Single[T comparable] struct {
	name string
	t    table[T]
}

// NewSingle returns a disabled index for the named property.
func NewSingle[T comparable](name string) *Single[T] {
	return &Single[T]{name: name, t: newTable[T]()}
}

// Name returns the indexed property name.
func (s *Single[T]) Name() string { return s.name }

// Enabled reports whether the index is being maintained.
func (s *Single[T]) Enabled() bool { return s.t.enabled }

// Enable backfills rows [0, n) using valueOf and starts maintenance.
// Rows for which valueOf reports false are left out. Enable on an enabled
// index is a no-op and returns false.
func (s *Single[T]) Enable(n int, valueOf func(row int) (T, bool)) bool {
	return s.t.backfill(n, valueOf)
}

// Insert adds a newly created row. No-op while disabled.
func (s *Single[T]) Insert(row int, v T) {
	if s.t.enabled {
		s.t.add(v, row)
	}
}

// Move relocates row from the bucket of old to the bucket of cur. A false
// hadOld or hasCur leaves that side out. No-op while disabled.
func (s *Single[T]) Move(row int, old T, hadOld bool, cur T, hasCur bool) {
	if s.t.enabled {
		s.t.move(row, old, hadOld, cur, hasCur)
	}
}

// Bucket returns the rows holding v, or nil if there are none.
// The bitmap is owned by the index and must not be modified.
func (s *Single[T]) Bucket(v T) *roaring.Bitmap {
	return s.t.bucket(v)
}

// Range calls fn for every non-empty bucket in unspecified order until fn
// returns false.
func (s *Single[T]) Range(fn func(v T, rows *roaring.Bitmap) bool) {
	for k, b := range s.t.buckets {
		if !fn(k, b) {
			return
		}
	}
}

// Stats summarizes the index.
func (s *Single[T]) Stats() Stats { return s.t.stats() }
