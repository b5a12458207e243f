package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain[T any](q *Queue[T]) []T {
	var out []T
	for {
		e, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, e.Value)
	}
}

func TestQueue_Empty(t *testing.T) {
	q := NewQueue[string]()

	_, ok := q.Pop()
	assert.False(t, ok)
	_, ok = q.NextTime()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_TimeOrder(t *testing.T) {
	q := NewQueue[string]()
	q.Add(3, Normal, "c")
	q.Add(1, Normal, "a")
	q.Add(2, Normal, "b")

	next, ok := q.NextTime()
	require.True(t, ok)
	assert.Equal(t, 1.0, next)
	assert.Equal(t, []string{"a", "b", "c"}, drain(q))
}

func TestQueue_SameTimeInsertionOrder(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 50; i++ {
		q.Add(1, Normal, i)
	}

	got := drain(q)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_PhaseOrder(t *testing.T) {
	q := NewQueue[string]()
	q.Add(5, Normal, "cb_a")
	q.Add(5, Last, "cb_b")
	q.Add(3, Normal, "cb_c")
	q.Add(5, First, "cb_first")

	assert.Equal(t, []string{"cb_c", "cb_first", "cb_a", "cb_b"}, drain(q))
}

func TestQueue_Cancel(t *testing.T) {
	q := NewQueue[string]()
	a := q.Add(1, Normal, "a")
	b := q.Add(2, Normal, "b")
	q.Add(3, Normal, "c")

	assert.True(t, q.Cancel(b))
	assert.False(t, q.Cancel(b), "second cancel is a no-op")
	assert.Equal(t, 2, q.Len())

	e, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, a, e.ID)
	assert.False(t, q.Cancel(a), "popped plan cannot be cancelled")

	assert.Equal(t, []string{"c"}, drain(q))
	assert.False(t, q.Cancel(ID(999)))
}

func TestQueue_CancelKeepsHeapOrder(t *testing.T) {
	q := NewQueue[int]()
	var ids []ID
	for i := 0; i < 20; i++ {
		ids = append(ids, q.Add(float64(20-i), Normal, 20-i))
	}
	for i := 0; i < 20; i += 3 {
		q.Cancel(ids[i])
	}

	got := drain(q)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}
	assert.Len(t, got, 13)
}

func TestQueue_EntryFields(t *testing.T) {
	q := NewQueue[string]()
	id := q.Add(2.5, Last, "x")

	e, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, Entry[string]{ID: id, Time: 2.5, Phase: Last, Value: "x"}, e)
}
