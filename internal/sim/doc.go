// Package sim implements the simulation kernel: entities with typed
// properties, value indexes and queries, synchronous change events and a
// discrete-event timeline, all owned by a Context.
//
// ARCHITECTURE:
//
// Schema vs State:
// EntityType, Property, Derived and Global are definitions. They hold no
// values and can be shared by any number of Contexts. Every value, index,
// subscription and plan lives in the Context that created it.
//
// Columnar Storage:
// Each entity type keeps one column per property, created on first use.
// Rows are dense and never removed, so an EntityID is just (type, row).
//
// Write Flow (Property.Set):
// 1. Previous value is read (default computed and cached if needed)
// 2. Derived dependents record their previous value
// 3. The cell is stored
// 4. Single, multi-property and derived indexes move the row
// 5. PropertyChange is emitted, then one per affected derived property
//
// Handlers run synchronously and depth-first: a Set inside a handler
// delivers its own events before the outer emission moves on.
//
// Timeline:
// Run drains queued callbacks before each plan and executes plans in
// (time, phase, insertion) order. Time never moves backwards.
//
// CRITICAL PATTERNS:
//
// Deterministic Sampling:
// Sampling counts the matches, draws one integer and takes the match at
// that rank in ascending row order. Index state therefore never changes
// which entity a given draw selects.
//
// Single-Threaded:
// A Context is not safe for concurrent use. Replicates run on separate
// Contexts.
package sim
