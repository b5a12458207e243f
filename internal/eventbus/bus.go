// Package eventbus is a synchronous, ordered, type-keyed publish/subscribe
// bus parameterized by the context passed to handlers.
//
// Key characteristics:
//   - Routing by exact string key; there is no wildcard or structural match.
//   - Handlers for one key run in registration order.
//   - Delivery happens in the caller's goroutine before Emit returns.
//   - Re-entrant Emit from a handler is delivered completely before control
//     returns to the remaining handlers of the outer event (depth first).
//   - The first handler error stops delivery of that event and is returned.
//
// The bus is not safe for concurrent use; it belongs to one simulation.
package eventbus

import "fmt"

// Handler receives an event with the bus context.
type Handler[C any] func(ctx C, ev any) error

// Subscription identifies a registered handler.
type Subscription struct {
	Key string
	id  uint64
}

type entry[C any] struct {
	id uint64
	fn Handler[C]
}

// Bus routes events to handlers.
type Bus[C any] struct {
	handlers map[string][]entry[C]
	nextID   uint64
	emitted  map[string]uint64
}

// New returns an empty bus.
func New[C any]() *Bus[C] {
	return &Bus[C]{
		handlers: make(map[string][]entry[C]),
		emitted:  make(map[string]uint64),
	}
}

// Subscribe appends fn to the handlers for key.
func (b *Bus[C]) Subscribe(key string, fn Handler[C]) Subscription {
	b.nextID++
	b.handlers[key] = append(b.handlers[key], entry[C]{id: b.nextID, fn: fn})
	return Subscription{Key: key, id: b.nextID}
}

// Unsubscribe removes a handler. It reports whether the handler was found.
// An emission already in progress still delivers to it.
func (b *Bus[C]) Unsubscribe(s Subscription) bool {
	list := b.handlers[s.Key]
	for i, e := range list {
		if e.id == s.id {
			next := make([]entry[C], 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			b.handlers[s.Key] = next
			return true
		}
	}
	return false
}

// HasSubscribers reports whether key has at least one handler.
func (b *Bus[C]) HasSubscribers(key string) bool {
	return len(b.handlers[key]) > 0
}

// Emit delivers ev to the handlers registered for key at the moment Emit is
// called. Handlers subscribed during delivery see only later events.
func (b *Bus[C]) Emit(ctx C, key string, ev any) error {
	b.emitted[key]++
	list := b.handlers[key]
	for _, e := range list {
		if err := e.fn(ctx, ev); err != nil {
			return fmt.Errorf("handler for %s: %w", key, err)
		}
	}
	return nil
}

// Emitted returns how many events were emitted per key, including events
// with no subscribers.
func (b *Bus[C]) Emitted() map[string]uint64 {
	out := make(map[string]uint64, len(b.emitted))
	for k, v := range b.emitted {
		out[k] = v
	}
	return out
}
