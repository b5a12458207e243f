// Package query evaluates conjunctive equality constraints over one entity
// type.
//
// Build picks one of three strategies:
//
//  1. MultiIndex: a multi-property index covers exactly the constrained
//     property set; its bucket is the result.
//  2. SingleIndex: at least one constrained property has an enabled index;
//     the smallest such bucket seeds the scan and every other constraint is
//     tested against raw columns.
//  3. FullScan: every row of the population is tested.
//
// All strategies yield rows in ascending row order. Count, Rows, Sample and
// SampleMany operate on that ordered sequence, so the result of a random draw
// depends only on the matching set and the draws consumed, never on the
// strategy. Sample consumes exactly one draw whenever the result is
// non-empty and none otherwise.
package query
