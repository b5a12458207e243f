package sim

import (
	"fmt"
	"reflect"

	"github.com/roach88/simkernel/internal/index"
	"github.com/roach88/simkernel/internal/property"
	"github.com/roach88/simkernel/internal/query"
	"github.com/roach88/simkernel/internal/value"
)

// PropertyRef is any property of an entity type, stored or derived.
// The interface is sealed; use DefineProperty and DefineDerived.
type PropertyRef interface {
	Name() string
	EntityType() *EntityType
	Derived() bool

	slot() int
	required() bool
	newColumn(n int) column
	leaves() []PropertyRef
	addDependent(d dependent)
	watch(c *Context, fn func(*Context, Change) error) Subscription
}

// TypedProperty is a property whose values have type T.
type TypedProperty[T comparable] interface {
	PropertyRef
	Get(c *Context, e EntityID) (T, error)
}

// column is the per-Context storage and index of one property.
type column interface {
	grow(n int)
	valueAny(c *Context, e EntityID) (any, bool)
	enableIndex(c *Context, es *entityStore) bool
	insertIndex(c *Context, e EntityID)
	indexStats() index.Stats
	indexBuckets() map[string]uint64
}

// dependent is notified around writes to a property it is derived from.
type dependent interface {
	track(c *Context, es *entityStore, e EntityID) *derivedUpdate
}

// Property is a stored property with values of type T.
type Property[T comparable] struct {
	typ        *EntityType
	name       string
	pos        int
	init       func(c *Context, e EntityID) T
	fixed      *T
	dependents []dependent
}

// PropertyOption configures a Property at definition.
type PropertyOption[T comparable] func(*Property[T])

// WithDefault makes v the value of every cell that was never set.
func WithDefault[T comparable](v T) PropertyOption[T] {
	return func(p *Property[T]) {
		p.init = func(*Context, EntityID) T { return v }
		p.fixed = &v
	}
}

// WithInitializer computes the value of a never-set cell on first read.
// The result is cached in the cell and no change event is emitted. A NaN
// result is not cached and Get reports it as an invalid property error.
func WithInitializer[T comparable](fn func(c *Context, e EntityID) T) PropertyOption[T] {
	return func(p *Property[T]) {
		p.init = fn
	}
}

// DefineProperty adds a stored property to et. A property without a default
// or initializer is required at creation.
func DefineProperty[T comparable](et *EntityType, name string, opts ...PropertyOption[T]) (*Property[T], error) {
	if err := value.Supported(reflect.TypeFor[T]()); err != nil {
		return nil, &Error{Code: ErrCodeInvalidProperty, Message: err.Error(), Name: et.name + "." + name}
	}
	pos, err := et.reserve(name)
	if err != nil {
		return nil, err
	}
	p := &Property[T]{typ: et, name: name, pos: pos}
	for _, opt := range opts {
		opt(p)
	}
	if p.fixed != nil && value.HasNaN(*p.fixed) {
		return nil, errNaN(et.name+"."+name, "")
	}
	et.add(p)
	return p, nil
}

// MustDefineProperty is like DefineProperty but panics on error. It is meant
// for package-level property variables.
func MustDefineProperty[T comparable](et *EntityType, name string, opts ...PropertyOption[T]) *Property[T] {
	p, err := DefineProperty(et, name, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the property name within its entity type.
func (p *Property[T]) Name() string { return p.name }

// EntityType returns the entity type the property belongs to.
func (p *Property[T]) EntityType() *EntityType { return p.typ }

// Derived reports false: a Property is stored.
func (p *Property[T]) Derived() bool { return false }

// String returns the qualified name, "Type.name".
func (p *Property[T]) String() string { return p.typ.name + "." + p.name }

func (p *Property[T]) slot() int                { return p.pos }
func (p *Property[T]) required() bool           { return p.init == nil }
func (p *Property[T]) leaves() []PropertyRef    { return []PropertyRef{p} }
func (p *Property[T]) addDependent(d dependent) { p.dependents = append(p.dependents, d) }
func (p *Property[T]) newColumn(n int) column   { return &storedColumn[T]{p: p, cells: property.NewColumn[T](n)} }

func (p *Property[T]) watch(c *Context, fn func(*Context, Change) error) Subscription {
	return watchTyped[T](c, p, fn)
}

// HasDefault reports whether the property has a default or initializer.
func (p *Property[T]) HasDefault() bool { return p.init != nil }

func (p *Property[T]) resolve(c *Context, e EntityID) (*entityStore, *storedColumn[T], error) {
	es, err := c.entity(e)
	if err != nil {
		return nil, nil, err
	}
	if e.typ != p.typ {
		return nil, nil, &Error{
			Code:    ErrCodeInvalidProperty,
			Message: fmt.Sprintf("property of %q used with entity of %q", p.typ.name, e.typ.name),
			Entity:  e.String(),
			Name:    p.String(),
		}
	}
	return es, es.column(p).(*storedColumn[T]), nil
}

// Get returns the value of the property for e. A never-set cell takes its
// default, which is cached without emitting an event. Without a default the
// call fails with an uninitialized property error.
func (p *Property[T]) Get(c *Context, e EntityID) (T, error) {
	_, col, err := p.resolve(c, e)
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := col.load(c, e)
	if !ok {
		var zero T
		if p.init != nil {
			return zero, errNaN(p.String(), e.String())
		}
		return zero, &Error{
			Code:    ErrCodeUninitializedProperty,
			Message: "property was never set and has no default",
			Entity:  e.String(),
			Name:    p.String(),
		}
	}
	return v, nil
}

// State returns the cell state of the property for e.
func (p *Property[T]) State(c *Context, e EntityID) (property.State, error) {
	_, col, err := p.resolve(c, e)
	if err != nil {
		return property.Uninitialized, err
	}
	return col.cells.State(e.row), nil
}

// Set writes v for e.
//
// Every index over the property, including multi-property and derived
// indexes, is updated before any handler runs. Then a PropertyChange is
// emitted, even when v equals the previous value, followed by one
// PropertyChange for each derived property that depends on this one.
// A handler error stops delivery and is returned; the write is not undone.
// A NaN value is rejected before anything changes.
func (p *Property[T]) Set(c *Context, e EntityID, v T) error {
	es, col, err := p.resolve(c, e)
	if err != nil {
		return err
	}
	if value.HasNaN(v) {
		return errNaN(p.String(), e.String())
	}
	row := e.row

	prev, hadPrev := col.load(c, e)

	var derived []*derivedUpdate
	for _, d := range p.dependents {
		if u := d.track(c, es, e); u != nil {
			derived = append(derived, u)
		}
	}

	multis := es.multiByProp[p.pos]
	oldKeys := make([]multiKey, len(multis))
	for i, m := range multis {
		oldKeys[i].key, oldKeys[i].ok = m.key(c, es, row)
	}

	col.cells.Store(row, v, property.Set)

	if col.idx != nil {
		col.idx.Move(row, prev, hadPrev, v, true)
	}
	for i, m := range multis {
		key, ok := m.key(c, es, row)
		m.idx.Move(row, oldKeys[i].key, oldKeys[i].ok, key, ok)
	}
	for _, u := range derived {
		u.apply()
	}

	c.stats.PropertyChanges++
	ev := PropertyChange[T]{Entity: e, Previous: prev, Current: v, HadPrevious: hadPrev}
	if err := c.bus.Emit(c, changeKey(p), ev); err != nil {
		return err
	}
	for _, u := range derived {
		if err := u.emit(); err != nil {
			return err
		}
	}
	return nil
}

type multiKey struct {
	key string
	ok  bool
}

// storedColumn holds the cells and single index of one stored property.
type storedColumn[T comparable] struct {
	p     *Property[T]
	cells *property.Column[T]
	idx   *index.Single[T]
}

// load returns the cell value, computing and caching the default for a
// never-set cell. An initializer result holding NaN counts as no value.
func (col *storedColumn[T]) load(c *Context, e EntityID) (T, bool) {
	v, st := col.cells.Load(e.row)
	if st != property.Uninitialized {
		return v, true
	}
	if col.p.init == nil {
		return v, false
	}
	v = col.p.init(c, e)
	if value.HasNaN(v) {
		var zero T
		return zero, false
	}
	col.cells.Store(e.row, v, property.Defaulted)
	return v, true
}

func (col *storedColumn[T]) grow(n int) { col.cells.Grow(n) }

func (col *storedColumn[T]) valueAny(c *Context, e EntityID) (any, bool) {
	v, ok := col.load(c, e)
	return v, ok
}

func (col *storedColumn[T]) enableIndex(c *Context, es *entityStore) bool {
	if col.idx == nil {
		col.idx = index.NewSingle[T](col.p.name)
	}
	return col.idx.Enable(es.count, func(row int) (T, bool) {
		return col.load(c, es.entity(row))
	})
}

func (col *storedColumn[T]) insertIndex(c *Context, e EntityID) {
	if col.idx == nil || !col.idx.Enabled() {
		return
	}
	if v, ok := col.load(c, e); ok {
		col.idx.Insert(e.row, v)
	}
}

func (col *storedColumn[T]) indexStats() index.Stats {
	if col.idx == nil {
		return index.Stats{}
	}
	return col.idx.Stats()
}

func (col *storedColumn[T]) indexBuckets() map[string]uint64 {
	return bucketSizes(col.idx)
}

func (col *storedColumn[T]) term(c *Context, es *entityStore, v T) query.Term {
	t := query.Term{
		Name: col.p.name,
		Match: func(row int) bool {
			got, ok := col.load(c, es.entity(row))
			return ok && got == v
		},
	}
	if col.idx != nil && col.idx.Enabled() {
		t.Indexed = true
		t.Bucket = col.idx.Bucket(v)
	}
	return t
}

func errNaN(name, entity string) *Error {
	return &Error{
		Code:    ErrCodeInvalidProperty,
		Message: "NaN is not a valid property value",
		Entity:  entity,
		Name:    name,
	}
}
