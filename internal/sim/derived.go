package sim

import (
	"fmt"
	"reflect"

	"github.com/roach88/simkernel/internal/index"
	"github.com/roach88/simkernel/internal/query"
	"github.com/roach88/simkernel/internal/value"
)

// Derived is a read-only property computed from other properties of the
// same entity.
//
// Dependencies on other derived properties are flattened to the stored
// properties underneath, so a write to any of them re-evaluates the derived
// value. When someone subscribes to its changes or its index is enabled, the
// derived value is computed before and after each such write and a
// PropertyChange is emitted for it after the write's own event.
type Derived[T comparable] struct {
	typ     *EntityType
	name    string
	pos     int
	deps    []PropertyRef
	compute func(c *Context, e EntityID) (T, error)
}

// DefineDerived adds a derived property to et. compute must read only the
// properties listed in deps.
func DefineDerived[T comparable](et *EntityType, name string, deps []PropertyRef, compute func(c *Context, e EntityID) (T, error)) (*Derived[T], error) {
	full := et.name + "." + name
	if err := value.Supported(reflect.TypeFor[T]()); err != nil {
		return nil, &Error{Code: ErrCodeInvalidProperty, Message: err.Error(), Name: full}
	}
	if len(deps) == 0 {
		return nil, &Error{Code: ErrCodeInvalidProperty, Message: "derived property needs at least one dependency", Name: full}
	}
	var leaves []PropertyRef
	seen := make(map[PropertyRef]bool)
	for _, dep := range deps {
		if dep.EntityType() != et {
			return nil, &Error{
				Code:    ErrCodeInvalidProperty,
				Message: fmt.Sprintf("dependency %s belongs to entity type %q", dep.Name(), dep.EntityType().name),
				Name:    full,
			}
		}
		for _, leaf := range dep.leaves() {
			if !seen[leaf] {
				seen[leaf] = true
				leaves = append(leaves, leaf)
			}
		}
	}

	pos, err := et.reserve(name)
	if err != nil {
		return nil, err
	}
	d := &Derived[T]{typ: et, name: name, pos: pos, deps: leaves, compute: compute}
	for _, leaf := range leaves {
		leaf.addDependent(d)
	}
	et.add(d)
	return d, nil
}

// MustDefineDerived is like DefineDerived but panics on error.
func MustDefineDerived[T comparable](et *EntityType, name string, deps []PropertyRef, compute func(c *Context, e EntityID) (T, error)) *Derived[T] {
	d, err := DefineDerived(et, name, deps, compute)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the property name within its entity type.
func (d *Derived[T]) Name() string { return d.name }

// EntityType returns the entity type the property belongs to.
func (d *Derived[T]) EntityType() *EntityType { return d.typ }

// Derived reports true.
func (d *Derived[T]) Derived() bool { return true }

// String returns the qualified name, "Type.name".
func (d *Derived[T]) String() string { return d.typ.name + "." + d.name }

func (d *Derived[T]) slot() int             { return d.pos }
func (d *Derived[T]) required() bool        { return false }
func (d *Derived[T]) leaves() []PropertyRef { return d.deps }
func (d *Derived[T]) newColumn(int) column  { return &derivedColumn[T]{d: d} }

// addDependent registers a derived property built on top of d with d's
// stored dependencies, which is where writes happen.
func (d *Derived[T]) addDependent(dep dependent) {
	for _, leaf := range d.deps {
		leaf.addDependent(dep)
	}
}

func (d *Derived[T]) watch(c *Context, fn func(*Context, Change) error) Subscription {
	return watchTyped[T](c, d, fn)
}

// Get computes the value for e. A computed NaN is an invalid property error.
func (d *Derived[T]) Get(c *Context, e EntityID) (T, error) {
	var zero T
	if _, err := c.entity(e); err != nil {
		return zero, err
	}
	if e.typ != d.typ {
		return zero, &Error{
			Code:    ErrCodeInvalidProperty,
			Message: fmt.Sprintf("property of %q used with entity of %q", d.typ.name, e.typ.name),
			Entity:  e.String(),
			Name:    d.String(),
		}
	}
	return d.eval(c, e)
}

// eval runs compute and rejects NaN results, so a NaN never reaches an index
// or a query match.
func (d *Derived[T]) eval(c *Context, e EntityID) (T, error) {
	v, err := d.compute(c, e)
	if err != nil {
		return v, err
	}
	if value.HasNaN(v) {
		var zero T
		return zero, errNaN(d.String(), e.String())
	}
	return v, nil
}

// derivedUpdate finishes a derived property's bookkeeping after a dependency
// write: apply moves the index entry, emit publishes the change.
type derivedUpdate struct {
	apply func()
	emit  func() error
}

func (d *Derived[T]) track(c *Context, es *entityStore, e EntityID) *derivedUpdate {
	col := es.column(d).(*derivedColumn[T])
	indexed := col.idx != nil && col.idx.Enabled()
	if !indexed && !c.bus.HasSubscribers(changeKey(d)) {
		return nil
	}

	prev, prevErr := d.eval(c, e)
	var cur T
	var curErr error
	return &derivedUpdate{
		apply: func() {
			cur, curErr = d.eval(c, e)
			if indexed {
				col.idx.Move(e.row, prev, prevErr == nil, cur, curErr == nil)
			}
		},
		emit: func() error {
			if curErr != nil {
				return fmt.Errorf("compute %s for %s: %w", d, e, curErr)
			}
			ev := PropertyChange[T]{Entity: e, Previous: prev, Current: cur, HadPrevious: prevErr == nil}
			return c.bus.Emit(c, changeKey(d), ev)
		},
	}
}

// derivedColumn holds only the optional index of a derived property.
type derivedColumn[T comparable] struct {
	d   *Derived[T]
	idx *index.Single[T]
}

func (col *derivedColumn[T]) grow(int) {}

func (col *derivedColumn[T]) valueAny(c *Context, e EntityID) (any, bool) {
	v, err := col.d.eval(c, e)
	return v, err == nil
}

func (col *derivedColumn[T]) enableIndex(c *Context, es *entityStore) bool {
	if col.idx == nil {
		col.idx = index.NewSingle[T](col.d.name)
	}
	return col.idx.Enable(es.count, func(row int) (T, bool) {
		v, err := col.d.eval(c, es.entity(row))
		return v, err == nil
	})
}

func (col *derivedColumn[T]) insertIndex(c *Context, e EntityID) {
	if col.idx == nil || !col.idx.Enabled() {
		return
	}
	if v, err := col.d.eval(c, e); err == nil {
		col.idx.Insert(e.row, v)
	}
}

func (col *derivedColumn[T]) indexStats() index.Stats {
	if col.idx == nil {
		return index.Stats{}
	}
	return col.idx.Stats()
}

func (col *derivedColumn[T]) indexBuckets() map[string]uint64 {
	return bucketSizes(col.idx)
}

func (col *derivedColumn[T]) term(c *Context, es *entityStore, v T) query.Term {
	t := query.Term{
		Name: col.d.name,
		Match: func(row int) bool {
			got, err := col.d.eval(c, es.entity(row))
			return err == nil && got == v
		},
	}
	if col.idx != nil && col.idx.Enabled() {
		t.Indexed = true
		t.Bucket = col.idx.Bucket(v)
	}
	return t
}
