// Package index maintains secondary indexes from property values to rows.
//
// Buckets are roaring bitmaps of row indices. Bitmaps iterate in ascending
// row order, report their cardinality in O(1) and support rank selection,
// which the query engine relies on for deterministic sampling.
//
// An index starts disabled. Enable backfills it with one scan; after that the
// owner calls Insert for new rows and Move for every write, whether or not
// the value changed.
//
// Single indexes one property keyed by its Go value. Multi indexes a set of
// properties keyed by the canonical tuple text of their values, with
// components always in sorted property-name order (see Signature).
package index
