package plan

import "container/heap"

// ID identifies a scheduled plan. IDs are unique within one Queue.
type ID uint64

// Entry is a popped plan.
type Entry[T any] struct {
	ID    ID
	Time  float64
	Phase Phase
	Value T
}

type item[T any] struct {
	Entry[T]
	seq   uint64
	index int
}

type planHeap[T any] []*item[T]

func (h planHeap[T]) Len() int { return len(h) }

func (h planHeap[T]) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.Phase != b.Phase {
		return a.Phase < b.Phase
	}
	return a.seq < b.seq
}

func (h planHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *planHeap[T]) Push(x any) {
	it := x.(*item[T])
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *planHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue is a priority queue of plans carrying values of type T.
type Queue[T any] struct {
	items   planHeap[T]
	pending map[ID]*item[T]
	seq     uint64
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{pending: make(map[ID]*item[T])}
}

// Add schedules v at time t in phase p. Validating t against the clock is
// the caller's job.
func (q *Queue[T]) Add(t float64, p Phase, v T) ID {
	q.seq++
	it := &item[T]{
		Entry: Entry[T]{ID: ID(q.seq), Time: t, Phase: p, Value: v},
		seq:   q.seq,
	}
	heap.Push(&q.items, it)
	q.pending[it.ID] = it
	return it.ID
}

// Cancel removes a pending plan. It reports whether the plan was pending;
// cancelling a popped, cancelled or unknown plan returns false.
func (q *Queue[T]) Cancel(id ID) bool {
	it, ok := q.pending[id]
	if !ok {
		return false
	}
	delete(q.pending, id)
	heap.Remove(&q.items, it.index)
	return true
}

// Pop removes and returns the earliest plan.
func (q *Queue[T]) Pop() (Entry[T], bool) {
	if len(q.items) == 0 {
		return Entry[T]{}, false
	}
	it := heap.Pop(&q.items).(*item[T])
	delete(q.pending, it.ID)
	return it.Entry, true
}

// NextTime returns the time of the earliest plan.
func (q *Queue[T]) NextTime() (float64, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0].Time, true
}

// Len returns the number of pending plans.
func (q *Queue[T]) Len() int {
	return len(q.items)
}
