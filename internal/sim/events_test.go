package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbreak struct {
	Cases int
}

func (outbreak) EventName() string { return "outbreak" }

func TestOn_UserEvents(t *testing.T) {
	c := newTestContext()

	var got []int
	sub := On(c, func(_ *Context, ev outbreak) error {
		got = append(got, ev.Cases)
		return nil
	})

	require.NoError(t, c.Emit(outbreak{Cases: 3}))
	require.NoError(t, c.Emit(outbreak{Cases: 5}))
	assert.True(t, c.Unsubscribe(sub))
	assert.False(t, c.Unsubscribe(sub))
	require.NoError(t, c.Emit(outbreak{Cases: 8}))

	assert.Equal(t, []int{3, 5}, got)
	assert.Equal(t, uint64(3), c.EventCounts()["event:outbreak"])
}

func TestWatch_BoxedChanges(t *testing.T) {
	p := newPeople(t)
	c := newTestContext()
	e := mustCreate(t, c, p.typ, With(p.age, 1))

	var got []Change
	for _, ref := range p.typ.Properties() {
		Watch(c, ref, func(_ *Context, ch Change) error {
			got = append(got, ch)
			return nil
		})
	}

	require.NoError(t, p.age.Set(c, e, 2))
	require.NoError(t, p.region.Set(c, e, "west"))

	assert.Equal(t, []Change{
		{Entity: e, Property: "Age", Previous: 1, Current: 2, HadPrevious: true},
		{Entity: e, Property: "Region", Previous: "north", Current: "west", HadPrevious: true},
	}, got)
}

func TestSubscribe_LateSubscriberSeesAllLaterEvents(t *testing.T) {
	p := newPeople(t)
	c := newTestContext()
	e := mustCreate(t, c, p.typ, With(p.age, 1))
	require.NoError(t, p.status.Set(c, e, "I"))

	var got []string
	OnChange(c, p.status, func(_ *Context, ev PropertyChange[string]) error {
		got = append(got, ev.Previous+">"+ev.Current)
		return nil
	})
	require.NoError(t, p.status.Set(c, e, "R"))
	require.NoError(t, p.status.Set(c, e, "S"))

	assert.Equal(t, []string{"I>R", "R>S"}, got)
}

func TestSubscribe_HandlerAddedDuringEmitWaitsForNextEvent(t *testing.T) {
	p := newPeople(t)
	c := newTestContext()
	e := mustCreate(t, c, p.typ, With(p.age, 1))

	inner := 0
	subscribed := false
	OnChange(c, p.age, func(c *Context, _ PropertyChange[int]) error {
		if !subscribed {
			subscribed = true
			OnChange(c, p.age, func(*Context, PropertyChange[int]) error {
				inner++
				return nil
			})
		}
		return nil
	})

	require.NoError(t, p.age.Set(c, e, 2))
	assert.Zero(t, inner)
	require.NoError(t, p.age.Set(c, e, 3))
	assert.Equal(t, 1, inner)
}

func TestEventCounts(t *testing.T) {
	p := newPeople(t)
	c := newTestContext()
	e := mustCreate(t, c, p.typ, With(p.age, 1))
	mustCreate(t, c, p.typ, With(p.age, 2))
	require.NoError(t, p.status.Set(c, e, "I"))

	counts := c.EventCounts()
	assert.Equal(t, uint64(2), counts["created:Person"])
	assert.Equal(t, uint64(1), counts["change:Person.Status"])
}
