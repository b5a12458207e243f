// Package sir is a susceptible-infected-recovered model with a constant
// force of infection.
//
// Transmission attempts arrive as a Poisson process scaled by population.
// Each attempt picks a random person and infects them if susceptible. Every
// infection schedules an exponentially distributed recovery. The run stops
// at MaxTime.
package sir

import (
	"errors"

	"github.com/roach88/simkernel/internal/random"
	"github.com/roach88/simkernel/internal/report"
	"github.com/roach88/simkernel/internal/sim"
)

// Status is a person's infection status.
type Status string

const (
	Susceptible Status = "S"
	Infected    Status = "I"
	Recovered   Status = "R"
)

// Statuses lists every status in progression order.
var Statuses = []Status{Susceptible, Infected, Recovered}

// Random stream names.
const (
	transmissionRng = "transmission"
	infectionRng    = "infection"
)

// DefaultSeed is the seed used when none is given.
const DefaultSeed uint64 = 123

// Parameters configure a run. They are loaded into the "parameters"
// global.
type Parameters struct {
	Population        int     `yaml:"population" json:"population"`
	MaxTime           float64 `yaml:"max_time" json:"max_time"`
	ForceOfInfection  float64 `yaml:"force_of_infection" json:"force_of_infection"`
	InfectionDuration float64 `yaml:"infection_duration" json:"infection_duration"`
	ReportPeriod      float64 `yaml:"report_period" json:"report_period"`
}

// DefaultParameters returns the parameters used when none are loaded.
func DefaultParameters() Parameters {
	return Parameters{
		Population:        1000,
		MaxTime:           303,
		ForceOfInfection:  0.1,
		InfectionDuration: 5,
		ReportPeriod:      1,
	}
}

// Validate checks that every parameter is usable.
func (p Parameters) Validate() error {
	var errs []error
	if p.Population <= 0 {
		errs = append(errs, errors.New("population must be positive"))
	}
	if !(p.MaxTime >= 0) {
		errs = append(errs, errors.New("max_time must not be negative"))
	}
	if !(p.ForceOfInfection > 0) {
		errs = append(errs, errors.New("force_of_infection must be positive"))
	}
	if !(p.InfectionDuration > 0) {
		errs = append(errs, errors.New("infection_duration must be positive"))
	}
	if p.ReportPeriod < 0 {
		errs = append(errs, errors.New("report_period must not be negative"))
	}
	return errors.Join(errs...)
}

var (
	// Person is the only entity type of the model.
	Person = sim.NewEntityType("Person")

	// InfectionStatus is a person's current status. Everyone starts
	// susceptible.
	InfectionStatus = sim.MustDefineProperty(Person, "InfectionStatus", sim.WithDefault(Susceptible))

	// Params holds the run parameters.
	Params = sim.NewGlobal("parameters", Parameters.Validate)
)

// Counts is emitted every ReportPeriod with the size of each compartment.
type Counts struct {
	Time        float64
	Susceptible int
	Infected    int
	Recovered   int
}

func (Counts) EventName() string { return "sir.counts" }

// Model wires the SIR model into a Context.
type Model struct{}

func (Model) Name() string { return "sir" }

func (Model) Description() string {
	return "SIR with constant force of infection and exponential recovery"
}

func (Model) DefaultSeed() uint64 { return DefaultSeed }

func (Model) Globals() []sim.GlobalRef { return []sim.GlobalRef{Params} }

// Parameters returns the loaded parameters, or the defaults if none were
// set.
func (Model) Parameters(c *sim.Context) Parameters {
	if p, ok := Params.Get(c); ok {
		return p
	}
	return DefaultParameters()
}

// Observe records status changes and compartment counts into rec.
func (Model) Observe(c *sim.Context, rec *report.Recorder) {
	rec.Watch(c, InfectionStatus)
	sim.On(c, func(c *sim.Context, ev Counts) error {
		rec.Sample(c, string(Susceptible), int64(ev.Susceptible))
		rec.Sample(c, string(Infected), int64(ev.Infected))
		rec.Sample(c, string(Recovered), int64(ev.Recovered))
		return nil
	})
}

// Setup creates the population and schedules the first transmission
// attempt, the periodic counts and the shutdown at MaxTime. Parameters
// that were not loaded are set to the defaults.
func (m Model) Setup(c *sim.Context) error {
	p, ok := Params.Get(c)
	if !ok {
		p = DefaultParameters()
		if err := Params.Set(c, p); err != nil {
			return err
		}
	}

	for i := 0; i < p.Population; i++ {
		if _, err := c.Create(Person); err != nil {
			return err
		}
	}
	if err := c.EnableIndex(InfectionStatus); err != nil {
		return err
	}

	sim.OnChange(c, InfectionStatus, func(c *sim.Context, ev sim.PropertyChange[Status]) error {
		if ev.Current != Infected {
			return nil
		}
		return scheduleRecovery(c, p, ev.Entity)
	})

	if _, err := c.AddPlan(0, func(c *sim.Context) error {
		return attemptInfection(c, p)
	}); err != nil {
		return err
	}
	if p.ReportPeriod > 0 {
		if err := c.AddPeriodicPlan(p.ReportPeriod, sim.Last, emitCounts); err != nil {
			return err
		}
	}
	_, err := c.AddPlan(p.MaxTime, func(c *sim.Context) error {
		c.Shutdown()
		return nil
	})
	return err
}

func attemptInfection(c *sim.Context, p Parameters) error {
	rng := c.Rand(transmissionRng)
	person, ok := c.SampleOne(rng, sim.Where(Person))
	if !ok {
		return nil
	}
	status, err := InfectionStatus.Get(c, person)
	if err != nil {
		return err
	}
	if status == Susceptible {
		if err := InfectionStatus.Set(c, person, Infected); err != nil {
			return err
		}
	}

	next := c.CurrentTime() + random.Exp(rng, p.ForceOfInfection)/float64(c.Population(Person))
	if next > p.MaxTime {
		return nil
	}
	_, err = c.AddPlan(next, func(c *sim.Context) error {
		return attemptInfection(c, p)
	})
	return err
}

func scheduleRecovery(c *sim.Context, p Parameters, person sim.EntityID) error {
	at := c.CurrentTime() + random.Exp(c.Rand(infectionRng), 1/p.InfectionDuration)
	_, err := c.AddPlan(at, func(c *sim.Context) error {
		return InfectionStatus.Set(c, person, Recovered)
	})
	return err
}

// Tally counts people in each status.
func Tally(c *sim.Context) Counts {
	return Counts{
		Time:        c.CurrentTime(),
		Susceptible: c.Count(sim.Where(Person, sim.Eq(InfectionStatus, Susceptible))),
		Infected:    c.Count(sim.Where(Person, sim.Eq(InfectionStatus, Infected))),
		Recovered:   c.Count(sim.Where(Person, sim.Eq(InfectionStatus, Recovered))),
	}
}

func emitCounts(c *sim.Context) error {
	return c.Emit(Tally(c))
}
