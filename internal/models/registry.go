// Package models holds the runnable models and the code that runs them.
package models

import (
	"fmt"
	"sort"

	"github.com/roach88/simkernel/internal/models/sir"
	"github.com/roach88/simkernel/internal/report"
	"github.com/roach88/simkernel/internal/sim"
)

// Model is a simulation that can be set up in a fresh Context.
type Model interface {
	Name() string
	Description() string
	DefaultSeed() uint64

	// Globals lists the globals a parameter file may set.
	Globals() []sim.GlobalRef

	// Observe attaches recording to c before Setup.
	Observe(c *sim.Context, rec *report.Recorder)

	// Setup creates the initial population and plans.
	Setup(c *sim.Context) error
}

// Registry maps model names to models.
type Registry struct {
	models map[string]Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model)}
}

// Default returns a registry with every built-in model.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(sir.Model{})
	return r
}

// Register adds m. Names must be unique.
func (r *Registry) Register(m Model) error {
	if _, ok := r.models[m.Name()]; ok {
		return fmt.Errorf("model %q already registered", m.Name())
	}
	r.models[m.Name()] = m
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(m Model) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Get looks up a model by name.
func (r *Registry) Get(name string) (Model, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (available: %v)", name, r.Names())
	}
	return m, nil
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the registered models sorted by name.
func (r *Registry) List() []Model {
	out := make([]Model, 0, len(r.models))
	for _, name := range r.Names() {
		out = append(out, r.models[name])
	}
	return out
}
