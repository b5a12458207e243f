package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/roach88/simkernel/internal/eventbus"
	"github.com/roach88/simkernel/internal/plan"
	"github.com/roach88/simkernel/internal/random"
)

// Phase orders plans scheduled for the same time.
type Phase = plan.Phase

const (
	First  = plan.First
	Normal = plan.Normal
	Last   = plan.Last
)

// PlanID identifies a scheduled plan.
type PlanID = plan.ID

// Callback is the body of a plan or queued callback. A non-nil error stops
// the run and is returned from Run.
type Callback func(c *Context) error

// Context is the whole state of one simulation: entities, properties,
// indexes, subscriptions, the timeline and random streams.
//
// CRITICAL: a Context is single-threaded. It is handed to exactly one
// callback or handler at a time; run independent replicates on independent
// Contexts.
type Context struct {
	types     map[*EntityType]*entityStore
	typeNames map[string]*EntityType
	globals   map[string]*globalSlot

	bus       *eventbus.Bus[*Context]
	plans     *plan.Queue[Callback]
	callbacks plan.Callbacks[Callback]
	clock     plan.Clock
	rng       *random.Streams

	shutdown bool
	maxPlans int
	stats    Stats
	log      *slog.Logger
}

// Stats counts the work done by a Context.
type Stats struct {
	PlansExecuted     int
	CallbacksExecuted int
	EntitiesCreated   int
	PropertyChanges   int
	Time              float64
}

// Option configures a Context.
type Option func(*Context)

// WithSeed sets the base seed of the random streams. Default: 0.
func WithSeed(seed uint64) Option {
	return func(c *Context) {
		c.rng = random.NewStreams(seed)
	}
}

// WithMaxPlans makes Run fail with PlansExceededError once more than n plans
// have executed. Zero means no limit.
func WithMaxPlans(n int) Option {
	return func(c *Context) {
		c.maxPlans = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// New returns an empty Context at time 0.
func New(opts ...Option) *Context {
	c := &Context{
		types:     make(map[*EntityType]*entityStore),
		typeNames: make(map[string]*EntityType),
		globals:   make(map[string]*globalSlot),
		bus:       eventbus.New[*Context](),
		plans:     plan.NewQueue[Callback](),
		rng:       random.NewStreams(0),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rand returns the random stream called name. Streams are independent:
// draws from one never shift another.
func (c *Context) Rand(name string) *rand.Rand {
	return c.rng.Get(name)
}

// Seed returns the base seed of the random streams.
func (c *Context) Seed() uint64 {
	return c.rng.Seed()
}

// CurrentTime returns the simulated time.
func (c *Context) CurrentTime() float64 {
	return c.clock.Now()
}

// Stats returns counters for the work done so far.
func (c *Context) Stats() Stats {
	s := c.stats
	s.Time = c.clock.Now()
	return s
}

// SetStartTime sets the simulated time before the run starts. It can be
// called once, and not with a time later than an already scheduled plan.
func (c *Context) SetStartTime(t float64) error {
	next, ok := c.plans.NextTime()
	if err := c.clock.SetStart(t, next, ok); err != nil {
		return &Error{Code: ErrCodeInvalidTime, Message: err.Error()}
	}
	return nil
}

// AddPlan schedules fn at time t in the Normal phase.
func (c *Context) AddPlan(t float64, fn Callback) (PlanID, error) {
	return c.AddPlanWithPhase(t, Normal, fn)
}

// AddPlanWithPhase schedules fn at time t in phase p. Plans at equal time
// run First, then Normal, then Last, and within a phase in the order they
// were added. Scheduling before the current time, or at a non-finite time,
// fails with an invalid time error.
func (c *Context) AddPlanWithPhase(t float64, p Phase, fn Callback) (PlanID, error) {
	if err := c.clock.Check(t); err != nil {
		return 0, &Error{Code: ErrCodeInvalidTime, Message: err.Error()}
	}
	return c.plans.Add(t, p, fn), nil
}

// AddPeriodicPlan runs fn now and then every period in phase p. After each
// run the next occurrence is scheduled only if other plans are still
// pending, so a periodic plan never keeps a simulation alive on its own.
func (c *Context) AddPeriodicPlan(period float64, p Phase, fn Callback) error {
	if !(period > 0) || math.IsInf(period, 0) {
		return &Error{Code: ErrCodeInvalidTime, Message: fmt.Sprintf("period %v must be positive and finite", period)}
	}
	var tick Callback
	tick = func(c *Context) error {
		if err := fn(c); err != nil {
			return err
		}
		if c.plans.Len() == 0 {
			return nil
		}
		_, err := c.AddPlanWithPhase(c.CurrentTime()+period, p, tick)
		return err
	}
	_, err := c.AddPlanWithPhase(c.CurrentTime(), p, tick)
	return err
}

// CancelPlan stops a pending plan from running. It reports whether the
// plan was pending; cancelling a plan that already ran, or was already
// cancelled, does nothing and returns false.
func (c *Context) CancelPlan(id PlanID) bool {
	return c.plans.Cancel(id)
}

// PendingPlans returns the number of scheduled plans.
func (c *Context) PendingPlans() int {
	return c.plans.Len()
}

// QueueCallback runs fn before the next plan, after callbacks queued
// earlier.
func (c *Context) QueueCallback(fn Callback) {
	c.callbacks.Push(fn)
}

// Shutdown asks Run to return once the current callback finishes. Plans
// still queued are kept.
func (c *Context) Shutdown() {
	c.shutdown = true
}

// Run drains queued callbacks and plans in order, advancing the simulated
// time to each plan's time. It returns nil when nothing is left or after
// Shutdown; shutdown and ctx are checked between callbacks, never during
// one. The first callback error stops the run and is returned wrapped with
// the plan's identity; state is not rolled back.
func (c *Context) Run(ctx context.Context) error {
	c.log.Info("simulation starting",
		"time", c.clock.Now(),
		"plans", c.plans.Len(),
		"seed", c.rng.Seed())

	err := c.run(ctx)
	c.shutdown = false

	if err != nil {
		c.log.Error("simulation failed",
			"time", c.clock.Now(),
			"plans", c.stats.PlansExecuted,
			"error", err)
		return err
	}
	c.log.Info("simulation finished",
		"time", c.clock.Now(),
		"plans", c.stats.PlansExecuted,
		"callbacks", c.stats.CallbacksExecuted,
		"pending", c.plans.Len(),
		"streams", c.rng.Names())
	return nil
}

func (c *Context) run(ctx context.Context) error {
	for !c.shutdown {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("simulation interrupted at time %v: %w", c.clock.Now(), err)
		}

		if cb, ok := c.callbacks.Pop(); ok {
			c.stats.CallbacksExecuted++
			if err := cb(c); err != nil {
				return fmt.Errorf("callback at time %v: %w", c.clock.Now(), err)
			}
			continue
		}

		if c.plans.Len() == 0 {
			return nil
		}
		if c.maxPlans > 0 && c.stats.PlansExecuted >= c.maxPlans {
			return &PlansExceededError{Executed: c.stats.PlansExecuted, Limit: c.maxPlans, Time: c.clock.Now()}
		}
		next, _ := c.plans.Pop()
		if err := c.clock.Advance(next.Time); err != nil {
			return err
		}
		c.stats.PlansExecuted++
		if err := next.Value(c); err != nil {
			return fmt.Errorf("plan %d at time %v: %w", next.ID, next.Time, err)
		}
	}
	return nil
}
