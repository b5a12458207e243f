package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/simkernel/internal/plan"
	"github.com/roach88/simkernel/internal/sim"
	"github.com/roach88/simkernel/internal/value"
)

// samplerStream names the random stream used by sample actions.
const samplerStream = "harness"

// Result holds the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Trace is one line per plan, creation, change, cancel, callback and
	// shutdown, in execution order, followed by an end line.
	Trace []string

	// Errors lists failed assertions.
	Errors []string

	// Stats are the kernel counters after the run.
	Stats sim.Stats
}

// Harness runs one scenario in a fresh Context.
type Harness struct {
	ctx    *sim.Context
	types  map[string]*entityType
	labels map[string]sim.PlanID
	trace  []string
	logger *slog.Logger
}

type entityType struct {
	et    *sim.EntityType
	props map[string]binding
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the kernel.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and evaluates its assertions.
//
// Each scenario builds its own entity types, so scenarios never share state.
// Execution flow:
//  1. Define entity types, properties and indexes
//  2. Set the start time and attach the tracer
//  3. Create the initial population
//  4. Schedule plans and run to completion
//  5. Evaluate assertions
//
// A returned error means the scenario could not run. Failed assertions are
// reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	h := &Harness{
		types:  make(map[string]*entityType),
		labels: make(map[string]sim.PlanID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.ctx = sim.New(sim.WithSeed(scenario.Seed), sim.WithLogger(h.logger))

	if err := h.define(scenario.Entities); err != nil {
		return nil, fmt.Errorf("define entities: %w", err)
	}
	if scenario.StartTime != nil {
		if err := h.ctx.SetStartTime(*scenario.StartTime); err != nil {
			return nil, fmt.Errorf("start time: %w", err)
		}
	}
	h.attachTracer()

	for i, step := range scenario.Create {
		if err := h.create(step); err != nil {
			return nil, fmt.Errorf("create[%d]: %w", i, err)
		}
	}
	for i, step := range scenario.Plans {
		if err := h.schedule(step); err != nil {
			return nil, fmt.Errorf("plans[%d] %s: %w", i, step.Label, err)
		}
	}

	if err := h.ctx.Run(context.Background()); err != nil {
		return nil, fmt.Errorf("run scenario %s: %w", scenario.Name, err)
	}
	stats := h.ctx.Stats()
	h.record("end plans=%d pending=%d", stats.PlansExecuted, h.ctx.PendingPlans())

	result := &Result{Trace: h.trace, Stats: stats}
	for i, a := range scenario.Assertions {
		if err := h.evaluate(a, result.Trace); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	result.Pass = len(result.Errors) == 0
	return result, nil
}

func (h *Harness) define(defs []EntityDef) error {
	for _, def := range defs {
		if _, ok := h.types[def.Type]; ok {
			return fmt.Errorf("duplicate entity type %q", def.Type)
		}
		t := &entityType{et: sim.NewEntityType(def.Type), props: make(map[string]binding)}
		for _, pd := range def.Properties {
			b, err := kinds[pd.Kind](t.et, pd.Name, pd.Default)
			if err != nil {
				return err
			}
			t.props[pd.Name] = b
		}
		h.types[def.Type] = t

		for _, name := range def.Indexes {
			b, err := t.property(name)
			if err != nil {
				return err
			}
			if err := h.ctx.EnableIndex(b.ref()); err != nil {
				return err
			}
		}
		for _, names := range def.MultiIndexes {
			refs := make([]sim.PropertyRef, len(names))
			for i, name := range names {
				b, err := t.property(name)
				if err != nil {
					return err
				}
				refs[i] = b.ref()
			}
			if err := h.ctx.EnableMultiIndex(refs...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *entityType) property(name string) (binding, error) {
	b, ok := t.props[name]
	if !ok {
		return nil, fmt.Errorf("unknown property %s.%s", t.et.Name(), name)
	}
	return b, nil
}

func (h *Harness) entityType(name string) (*entityType, error) {
	t, ok := h.types[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", name)
	}
	return t, nil
}

// entity resolves "Type#row".
func (h *Harness) entity(ref string) (*entityType, sim.EntityID, error) {
	name, row, ok := strings.Cut(ref, "#")
	if !ok {
		return nil, sim.EntityID{}, fmt.Errorf("entity %q: want Type#row", ref)
	}
	t, err := h.entityType(name)
	if err != nil {
		return nil, sim.EntityID{}, err
	}
	n, err := strconv.Atoi(row)
	if err != nil {
		return nil, sim.EntityID{}, fmt.Errorf("entity %q: %w", ref, err)
	}
	return t, t.et.Entity(n), nil
}

// query builds a conjunction from where. Keys are sorted so the term order,
// and with it the chosen plan, does not depend on map iteration.
func (h *Harness) query(typeName string, where map[string]any) (sim.Query, error) {
	t, err := h.entityType(typeName)
	if err != nil {
		return sim.Query{}, err
	}
	names := make([]string, 0, len(where))
	for name := range where {
		names = append(names, name)
	}
	slices.Sort(names)

	terms := make([]sim.Term, 0, len(names))
	for _, name := range names {
		b, err := t.property(name)
		if err != nil {
			return sim.Query{}, err
		}
		term, err := b.eq(where[name])
		if err != nil {
			return sim.Query{}, err
		}
		terms = append(terms, term)
	}
	return sim.Where(t.et, terms...), nil
}

func (h *Harness) attachTracer() {
	names := make([]string, 0, len(h.types))
	for name := range h.types {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		t := h.types[name]
		sim.OnCreated(h.ctx, t.et, func(c *sim.Context, ev sim.EntityCreated) error {
			h.record("created %s", ev.Entity)
			return nil
		})
		for _, ref := range t.et.Properties() {
			sim.Watch(h.ctx, ref, func(c *sim.Context, ch sim.Change) error {
				prev := "<unset>"
				if ch.HadPrevious {
					prev = value.MustFormat(ch.Previous)
				}
				h.record("change %s.%s %s -> %s", ch.Entity, ch.Property, prev, value.MustFormat(ch.Current))
				return nil
			})
		}
	}
}

func (h *Harness) record(format string, args ...any) {
	t := strconv.FormatFloat(h.ctx.CurrentTime(), 'g', -1, 64)
	h.trace = append(h.trace, "t="+t+" "+fmt.Sprintf(format, args...))
}

func (h *Harness) create(step CreateStep) error {
	t, err := h.entityType(step.Type)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(step.Values))
	for name := range step.Values {
		names = append(names, name)
	}
	slices.Sort(names)

	inits := make([]sim.Init, 0, len(names))
	for _, name := range names {
		b, err := t.property(name)
		if err != nil {
			return err
		}
		in, err := b.with(step.Values[name])
		if err != nil {
			return err
		}
		inits = append(inits, in)
	}

	count := max(step.Count, 1)
	for range count {
		if _, err := h.ctx.Create(t.et, inits...); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) schedule(step PlanStep) error {
	phase, err := plan.ParsePhase(step.Phase)
	if err != nil {
		return err
	}
	fn := func(c *sim.Context) error {
		h.record("plan %s [%s]", step.Label, phase)
		return h.perform(step.Actions)
	}
	if step.Every > 0 {
		return h.ctx.AddPeriodicPlan(step.Every, phase, fn)
	}
	id, err := h.ctx.AddPlanWithPhase(step.At, phase, fn)
	if err != nil {
		return err
	}
	h.labels[step.Label] = id
	return nil
}

func (h *Harness) perform(actions []Action) error {
	for _, a := range actions {
		if err := h.act(a); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) act(a Action) error {
	switch {
	case a.Set != nil:
		t, e, err := h.entity(a.Set.Entity)
		if err != nil {
			return err
		}
		b, err := t.property(a.Set.Property)
		if err != nil {
			return err
		}
		return b.set(h.ctx, e, a.Set.Value)

	case a.Create != nil:
		return h.create(*a.Create)

	case a.Sample != nil:
		q, err := h.query(a.Sample.Type, a.Sample.Where)
		if err != nil {
			return err
		}
		e, ok := h.ctx.SampleOne(h.ctx.Rand(samplerStream), q)
		if !ok {
			h.record("sample %s none", q)
			return nil
		}
		b, err := h.types[a.Sample.Type].property(a.Sample.Property)
		if err != nil {
			return err
		}
		h.record("sample %s %s", q, e)
		return b.set(h.ctx, e, a.Sample.Value)

	case a.Cancel != "":
		id, ok := h.labels[a.Cancel]
		if !ok {
			return fmt.Errorf("cancel: no plan labelled %q", a.Cancel)
		}
		h.record("cancel %s %t", a.Cancel, h.ctx.CancelPlan(id))
		return nil

	case a.Callback != nil:
		actions := a.Callback
		h.ctx.QueueCallback(func(c *sim.Context) error {
			h.record("callback")
			return h.perform(actions)
		})
		return nil

	case a.Shutdown:
		h.record("shutdown")
		h.ctx.Shutdown()
		return nil
	}
	return errors.New("empty action")
}
