package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type log struct {
	lines []string
}

func TestBus_RegistrationOrder(t *testing.T) {
	b := New[*log]()
	for _, name := range []string{"first", "second", "third"} {
		b.Subscribe("change", func(l *log, ev any) error {
			l.lines = append(l.lines, name+":"+ev.(string))
			return nil
		})
	}

	l := &log{}
	require.NoError(t, b.Emit(l, "change", "x"))
	assert.Equal(t, []string{"first:x", "second:x", "third:x"}, l.lines)
}

func TestBus_ExactKeyOnly(t *testing.T) {
	b := New[*log]()
	b.Subscribe("created:Person", func(l *log, ev any) error {
		l.lines = append(l.lines, "person")
		return nil
	})

	l := &log{}
	require.NoError(t, b.Emit(l, "created:Place", nil))
	require.NoError(t, b.Emit(l, "created", nil))
	assert.Empty(t, l.lines)
	assert.True(t, b.HasSubscribers("created:Person"))
	assert.False(t, b.HasSubscribers("created:Place"))
}

func TestBus_ReentrantEmitIsDepthFirst(t *testing.T) {
	b := New[*log]()
	b.Subscribe("outer", func(l *log, ev any) error {
		l.lines = append(l.lines, "outer-1")
		return b.Emit(l, "inner", nil)
	})
	b.Subscribe("outer", func(l *log, ev any) error {
		l.lines = append(l.lines, "outer-2")
		return nil
	})
	b.Subscribe("inner", func(l *log, ev any) error {
		l.lines = append(l.lines, "inner-1")
		return nil
	})
	b.Subscribe("inner", func(l *log, ev any) error {
		l.lines = append(l.lines, "inner-2")
		return nil
	})

	l := &log{}
	require.NoError(t, b.Emit(l, "outer", nil))
	assert.Equal(t, []string{"outer-1", "inner-1", "inner-2", "outer-2"}, l.lines)
}

func TestBus_SubscribeDuringEmitSeesLaterEventsOnly(t *testing.T) {
	b := New[*log]()
	b.Subscribe("tick", func(l *log, ev any) error {
		if ev.(int) == 1 {
			b.Subscribe("tick", func(l *log, ev any) error {
				l.lines = append(l.lines, "late")
				return nil
			})
		}
		l.lines = append(l.lines, "early")
		return nil
	})

	l := &log{}
	require.NoError(t, b.Emit(l, "tick", 1))
	require.NoError(t, b.Emit(l, "tick", 2))
	assert.Equal(t, []string{"early", "early", "late"}, l.lines)
}

func TestBus_ErrorStopsDelivery(t *testing.T) {
	b := New[*log]()
	boom := errors.New("boom")
	b.Subscribe("e", func(l *log, ev any) error { return boom })
	b.Subscribe("e", func(l *log, ev any) error {
		l.lines = append(l.lines, "unreachable")
		return nil
	})

	l := &log{}
	err := b.Emit(l, "e", nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "handler for e")
	assert.Empty(t, l.lines)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New[*log]()
	sub := b.Subscribe("e", func(l *log, ev any) error {
		l.lines = append(l.lines, "a")
		return nil
	})
	b.Subscribe("e", func(l *log, ev any) error {
		l.lines = append(l.lines, "b")
		return nil
	})

	assert.True(t, b.Unsubscribe(sub))
	assert.False(t, b.Unsubscribe(sub))

	l := &log{}
	require.NoError(t, b.Emit(l, "e", nil))
	assert.Equal(t, []string{"b"}, l.lines)
}

func TestBus_Emitted(t *testing.T) {
	b := New[*log]()
	require.NoError(t, b.Emit(&log{}, "a", nil))
	require.NoError(t, b.Emit(&log{}, "a", nil))
	require.NoError(t, b.Emit(&log{}, "b", nil))

	assert.Equal(t, map[string]uint64{"a": 2, "b": 1}, b.Emitted())
}
