// Package report persists simulation runs to SQLite.
//
// A Recorder subscribes to a Context and buffers created and change events
// plus named samples in memory. When the run ends, Store.WriteRun writes the
// run row and every buffered record in one transaction, so a report never
// holds half a run.
//
// # Critical Patterns
//
// Deterministic Query Results:
//   - Events and samples carry the recording sequence number
//   - All reads ORDER BY seq ASC (runs by id COLLATE BINARY)
//   - Two runs with the same seed produce identical event rows
//
// Display Values:
//   - Property values are stored as their canonical text (value.Format)
//   - previous is NULL when the cell had no value before the write
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package report
