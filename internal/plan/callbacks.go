package plan

// Callbacks is a FIFO of work to run before the next plan.
type Callbacks[T any] struct {
	items []T
	head  int
}

// Push appends v.
func (c *Callbacks[T]) Push(v T) {
	c.items = append(c.items, v)
}

// Pop removes and returns the oldest callback.
func (c *Callbacks[T]) Pop() (T, bool) {
	var zero T
	if c.head == len(c.items) {
		return zero, false
	}
	v := c.items[c.head]
	c.items[c.head] = zero
	c.head++
	if c.head == len(c.items) {
		c.items = c.items[:0]
		c.head = 0
	}
	return v, true
}

// Len returns the number of queued callbacks.
func (c *Callbacks[T]) Len() int {
	return len(c.items) - c.head
}
