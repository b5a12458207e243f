package sir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/report"
	"github.com/roach88/simkernel/internal/sim"
	"github.com/roach88/simkernel/internal/testutil"
)

func newContext(t *testing.T, seed uint64, p Parameters) (*sim.Context, *report.Recorder) {
	t.Helper()
	c := sim.New(sim.WithSeed(seed), sim.WithLogger(testutil.QuietLogger()))
	require.NoError(t, c.RegisterGlobals(Model{}.Globals()...))
	require.NoError(t, Params.Set(c, p))

	rec := report.NewRecorder()
	Model{}.Observe(c, rec)
	require.NoError(t, Model{}.Setup(c))
	return c, rec
}

func smallParameters() Parameters {
	p := DefaultParameters()
	p.Population = 100
	p.MaxTime = 60
	return p
}

func TestParameters_Validate(t *testing.T) {
	require.NoError(t, DefaultParameters().Validate())

	bad := DefaultParameters()
	bad.Population = 0
	bad.ForceOfInfection = -1
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "population")
	assert.Contains(t, err.Error(), "force_of_infection")
}

func TestParams_RejectsInvalid(t *testing.T) {
	c := sim.New(sim.WithLogger(testutil.QuietLogger()))
	bad := DefaultParameters()
	bad.InfectionDuration = 0
	assert.Error(t, Params.Set(c, bad))
}

func TestSetup_DefaultsWhenNotLoaded(t *testing.T) {
	c := sim.New(sim.WithLogger(testutil.QuietLogger()))
	require.NoError(t, Model{}.Setup(c))

	assert.Equal(t, DefaultParameters(), Model{}.Parameters(c))
	assert.Equal(t, 1000, c.Population(Person))
	assert.Equal(t, 1000, c.Count(sim.Where(Person, sim.Eq(InfectionStatus, Susceptible))))
}

func TestRun_CompartmentsConserved(t *testing.T) {
	p := smallParameters()
	c, rec := newContext(t, DefaultSeed, p)
	require.NoError(t, c.Run(context.Background()))

	assert.LessOrEqual(t, c.CurrentTime(), p.MaxTime)

	final := Tally(c)
	assert.Equal(t, p.Population, final.Susceptible+final.Infected+final.Recovered)
	assert.Positive(t, final.Infected+final.Recovered)

	byTime := map[float64]int64{}
	var lastRecovered int64
	for _, sm := range rec.Samples() {
		byTime[sm.Time] += sm.Value
		if sm.Name == string(Recovered) {
			assert.GreaterOrEqual(t, sm.Value, lastRecovered)
			lastRecovered = sm.Value
		}
	}
	require.NotEmpty(t, byTime)
	for at, total := range byTime {
		assert.Equal(t, int64(p.Population), total, "time %v", at)
	}
}

func TestRun_OnlyForwardTransitions(t *testing.T) {
	c, rec := newContext(t, 7, smallParameters())
	require.NoError(t, c.Run(context.Background()))

	allowed := map[string]string{`"S"`: `"I"`, `"I"`: `"R"`}
	require.NotEmpty(t, rec.Events())
	for _, ev := range rec.Events() {
		require.True(t, ev.HadPrevious)
		assert.Equal(t, allowed[ev.Previous], ev.Current, "%s at %v", ev.Entity, ev.Time)
	}
}

func TestRun_Deterministic(t *testing.T) {
	c1, rec1 := newContext(t, 42, smallParameters())
	require.NoError(t, c1.Run(context.Background()))
	c2, rec2 := newContext(t, 42, smallParameters())
	require.NoError(t, c2.Run(context.Background()))

	assert.Equal(t, rec1.Events(), rec2.Events())
	assert.Equal(t, rec1.Samples(), rec2.Samples())
	assert.Equal(t, c1.Stats(), c2.Stats())
}

func TestAttemptInfection_InfectsSusceptible(t *testing.T) {
	c := sim.New(sim.WithSeed(0), sim.WithLogger(testutil.QuietLogger()))
	person, err := c.Create(Person)
	require.NoError(t, err)

	p := DefaultParameters()
	p.MaxTime = 0
	require.NoError(t, attemptInfection(c, p))

	status, err := InfectionStatus.Get(c, person)
	require.NoError(t, err)
	assert.Equal(t, Infected, status)
	assert.Zero(t, c.PendingPlans())
}
