// Package plan implements the timeline primitives: the plan queue, the
// simulated clock and the FIFO of immediate callbacks.
//
// Plans are ordered by (time, phase, sequence). The sequence is a strictly
// increasing insertion counter, so plans with equal time and phase run in
// the order they were added, no matter how insertions interleave with
// execution.
//
// Cancellation removes the plan from the heap immediately, so a cancelled
// plan can never be popped and never holds the clock back.
//
// Nothing here is safe for concurrent use. A simulation owns its queue and
// drives it from a single goroutine.
package plan
