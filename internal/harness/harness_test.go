package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_GoldenScenarios(t *testing.T) {
	for _, name := range []string{"phase_ordering", "infection_chain", "periodic_counts"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRun_SampleInfection(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "sample_infection.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 3, result.Stats.PlansExecuted)
	assert.Equal(t, 4, result.Stats.PropertyChanges)
}

func TestRun_SameSeedSameTrace(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "sample_infection.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}

func personScenario(plans []PlanStep, assertions []Assertion) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "built in a test",
		Entities: []EntityDef{{
			Type: "Person",
			Properties: []PropertyDef{
				{Name: "Status", Kind: "string", Default: "S"},
				{Name: "Age", Kind: "int"},
			},
		}},
		Create:     []CreateStep{{Type: "Person", Count: 3, Values: map[string]any{"Age": 7}}},
		Plans:      plans,
		Assertions: assertions,
	}
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	scenario := personScenario(
		[]PlanStep{{Label: "p", At: 1}},
		[]Assertion{
			{Type: AssertCount, EntityType: "Person", Where: map[string]any{"Status": "S"}, Expect: 2},
			{Type: AssertValue, Entity: "Person#0", Property: "Age", Expect: 8},
			{Type: AssertTraceOrder, Labels: []string{"q"}},
			{Type: AssertTraceCount, Contains: "created", Count: 3},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Expected: 2 entities matching Person{Status=\"S\"}")
	assert.Contains(t, result.Errors[0], "Actual: 3")
	assert.Contains(t, result.Errors[1], "Person#0.Age = 8")
	assert.Contains(t, result.Errors[2], "Actual: p")
}

func TestRun_MissingRequiredValueFails(t *testing.T) {
	scenario := personScenario(nil, nil)
	scenario.Create = []CreateStep{{Type: "Person"}}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create[0]")
}

func TestRun_ActionErrorStopsRun(t *testing.T) {
	scenario := personScenario([]PlanStep{{
		Label:   "bad",
		At:      1,
		Actions: []Action{{Set: &SetAction{Entity: "Person#9", Property: "Status", Value: "I"}}},
	}}, nil)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run scenario inline")
}

func TestRun_WrongValueTypeFails(t *testing.T) {
	scenario := personScenario([]PlanStep{{
		Label:   "bad",
		At:      1,
		Actions: []Action{{Set: &SetAction{Entity: "Person#0", Property: "Age", Value: "old"}}},
	}}, nil)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want int")
}

func TestRun_SampleWithNoMatch(t *testing.T) {
	scenario := personScenario([]PlanStep{{
		Label: "none",
		At:    1,
		Actions: []Action{{Sample: &SampleAction{
			Type: "Person", Where: map[string]any{"Status": "R"}, Property: "Status", Value: "S",
		}}},
	}}, nil)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Contains(t, result.Trace, `t=1 sample Person{Status="R"} none`)
}

func TestRun_StartTimeAfterPlanFails(t *testing.T) {
	start := 5.0
	scenario := personScenario([]PlanStep{{Label: "early", At: 1}}, nil)
	scenario.StartTime = &start

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plans[0] early")
}

func TestTraceText(t *testing.T) {
	assert.Equal(t, "", TraceText(&Result{}))
	assert.Equal(t, "a\nb\n", TraceText(&Result{Trace: []string{"a", "b"}}))
}
