package sim

import "github.com/roach88/simkernel/internal/eventbus"

// Subscription identifies a registered handler; pass it to Unsubscribe.
type Subscription = eventbus.Subscription

// EntityCreated is emitted once per entity after Create has committed every
// initial value.
type EntityCreated struct {
	Entity EntityID
}

// PropertyChange is emitted by every Set, and for derived properties after
// every write to one of their dependencies. HadPrevious is false when the
// cell had no value and no default before the write.
type PropertyChange[T comparable] struct {
	Entity      EntityID
	Previous    T
	Current     T
	HadPrevious bool
}

// Change is a PropertyChange with its values boxed, for subscribers that
// handle properties of any type.
type Change struct {
	Entity      EntityID
	Property    string
	Previous    any
	Current     any
	HadPrevious bool
}

// Event is a user-defined event. EventName is its routing identity and must
// be constant for the type.
type Event interface {
	EventName() string
}

func createdKey(et *EntityType) string {
	return "created:" + et.name
}

func changeKey(ref PropertyRef) string {
	return "change:" + ref.EntityType().name + "." + ref.Name()
}

func eventKey(name string) string {
	return "event:" + name
}

// OnCreated subscribes fn to EntityCreated events of et.
func OnCreated(c *Context, et *EntityType, fn func(*Context, EntityCreated) error) Subscription {
	return c.bus.Subscribe(createdKey(et), func(c *Context, ev any) error {
		return fn(c, ev.(EntityCreated))
	})
}

// OnChange subscribes fn to changes of p. A subscription made at any point
// sees every later change, including the first change of a derived
// property.
func OnChange[T comparable](c *Context, p TypedProperty[T], fn func(*Context, PropertyChange[T]) error) Subscription {
	return c.bus.Subscribe(changeKey(p), func(c *Context, ev any) error {
		return fn(c, ev.(PropertyChange[T]))
	})
}

// Watch subscribes fn to changes of ref with values boxed.
func Watch(c *Context, ref PropertyRef, fn func(*Context, Change) error) Subscription {
	return ref.watch(c, fn)
}

func watchTyped[T comparable](c *Context, p TypedProperty[T], fn func(*Context, Change) error) Subscription {
	return OnChange(c, p, func(c *Context, ev PropertyChange[T]) error {
		return fn(c, Change{
			Entity:      ev.Entity,
			Property:    p.Name(),
			Previous:    ev.Previous,
			Current:     ev.Current,
			HadPrevious: ev.HadPrevious,
		})
	})
}

// On subscribes fn to user events of type E. E should be a value type:
// its zero value supplies the routing name.
func On[E Event](c *Context, fn func(*Context, E) error) Subscription {
	var zero E
	return c.bus.Subscribe(eventKey(zero.EventName()), func(c *Context, ev any) error {
		return fn(c, ev.(E))
	})
}

// Emit delivers a user event to its subscribers before returning.
func (c *Context) Emit(ev Event) error {
	return c.bus.Emit(c, eventKey(ev.EventName()), ev)
}

// Unsubscribe removes a handler. It reports whether the handler was found.
func (c *Context) Unsubscribe(s Subscription) bool {
	return c.bus.Unsubscribe(s)
}

// EventCounts returns how many events were emitted per routing key.
func (c *Context) EventCounts() map[string]uint64 {
	return c.bus.Emitted()
}
