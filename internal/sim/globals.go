package sim

import (
	"fmt"
	"slices"

	"github.com/roach88/simkernel/internal/config"
)

// Global is a named, typed, run-wide value such as a model parameter. A
// global is set at most once per Context.
type Global[T any] struct {
	name     string
	validate func(T) error
}

// NewGlobal defines a global. validate may be nil.
func NewGlobal[T any](name string, validate func(T) error) *Global[T] {
	return &Global[T]{name: name, validate: validate}
}

// GlobalRef is any Global.
type GlobalRef interface {
	GlobalName() string
	load(c *Context, raw config.Raw) error
}

type globalSlot struct {
	owner any
	value any
	set   bool
}

// GlobalName returns the name the global is registered and loaded under.
func (g *Global[T]) GlobalName() string { return g.name }

// RegisterGlobals makes globals known to c so that LoadGlobals can fill
// them by name. Registering one global twice is a no-op; registering two
// globals under one name is a duplicate registration error.
func (c *Context) RegisterGlobals(gs ...GlobalRef) error {
	for _, g := range gs {
		if err := c.registerGlobal(g.GlobalName(), g); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) registerGlobal(name string, owner any) error {
	slot, ok := c.globals[name]
	if !ok {
		c.globals[name] = &globalSlot{owner: owner}
		return nil
	}
	if slot.owner != owner {
		return duplicateError("global property", name)
	}
	return nil
}

// Set stores v for g in c, registering g if needed. A global can only be
// set once.
func (g *Global[T]) Set(c *Context, v T) error {
	if err := c.registerGlobal(g.name, g); err != nil {
		return err
	}
	slot := c.globals[g.name]
	if slot.set {
		return &Error{Code: ErrCodeGlobalAlreadySet, Message: "global property already has a value", Name: g.name}
	}
	if g.validate != nil {
		if err := g.validate(v); err != nil {
			return &Error{Code: ErrCodeInvalidGlobal, Message: err.Error(), Name: g.name}
		}
	}
	slot.value, slot.set = v, true
	return nil
}

// Get returns the value of g in c.
func (g *Global[T]) Get(c *Context) (T, bool) {
	slot, ok := c.globals[g.name]
	if !ok || !slot.set || slot.owner != g {
		var zero T
		return zero, false
	}
	return slot.value.(T), true
}

func (g *Global[T]) load(c *Context, raw config.Raw) error {
	var v T
	if err := raw.Decode(&v); err != nil {
		return fmt.Errorf("global %s: %w", g.name, err)
	}
	return g.Set(c, v)
}

// LoadGlobals sets registered globals from decoded parameter values, in
// name order. Every name must belong to a registered global.
func (c *Context) LoadGlobals(values map[string]config.Raw) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		slot, ok := c.globals[name]
		if !ok {
			return &Error{Code: ErrCodeUnknownGlobal, Message: "no global property registered with this name", Name: name}
		}
		if err := slot.owner.(GlobalRef).load(c, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// LoadGlobalsFile reads a YAML, JSON or CUE parameter file and loads it with
// LoadGlobals.
func (c *Context) LoadGlobalsFile(path string) error {
	values, err := config.LoadValues(path)
	if err != nil {
		return err
	}
	if err := c.LoadGlobals(values); err != nil {
		return fmt.Errorf("load globals from %s: %w", path, err)
	}
	return nil
}

// GlobalValues returns the values of every global that has been set.
func (c *Context) GlobalValues() map[string]any {
	out := make(map[string]any)
	for name, slot := range c.globals {
		if slot.set {
			out[name] = slot.value
		}
	}
	return out
}
