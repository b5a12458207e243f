package index

import "github.com/RoaringBitmap/roaring/v2"

// table is the bucket map shared by Single and Multi.
type table[K comparable] struct {
	buckets map[K]*roaring.Bitmap
	enabled bool
}

func newTable[K comparable]() table[K] {
	return table[K]{buckets: make(map[K]*roaring.Bitmap)}
}

func (t *table[K]) add(k K, row int) {
	b, ok := t.buckets[k]
	if !ok {
		b = roaring.New()
		t.buckets[k] = b
	}
	b.Add(uint32(row))
}

func (t *table[K]) remove(k K, row int) {
	b, ok := t.buckets[k]
	if !ok {
		return
	}
	b.Remove(uint32(row))
	if b.IsEmpty() {
		delete(t.buckets, k)
	}
}

// move relocates row between buckets. A missing old or new value means the
// row is absent from the index on that side.
func (t *table[K]) move(row int, old K, hadOld bool, cur K, hasCur bool) {
	if hadOld {
		t.remove(old, row)
	}
	if hasCur {
		t.add(cur, row)
	}
}

func (t *table[K]) bucket(k K) *roaring.Bitmap {
	return t.buckets[k]
}

func (t *table[K]) backfill(n int, keyOf func(row int) (K, bool)) bool {
	if t.enabled {
		return false
	}
	t.enabled = true
	for row := 0; row < n; row++ {
		if k, ok := keyOf(row); ok {
			t.add(k, row)
		}
	}
	return true
}

func (t *table[K]) rows() uint64 {
	var n uint64
	for _, b := range t.buckets {
		n += b.GetCardinality()
	}
	return n
}

// Stats summarizes an index for logging and inspection.
type Stats struct {
	Enabled bool
	Buckets int
	Rows    uint64
}

func (t *table[K]) stats() Stats {
	return Stats{Enabled: t.enabled, Buckets: len(t.buckets), Rows: t.rows()}
}
