package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestScenario_HarnessScenariosPass(t *testing.T) {
	out, _, err := execute(NewScenarioCommand(&RootOptions{Format: "json"}), harnessScenarios)
	require.NoError(t, err)

	var resp struct {
		Data ScenarioSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 4, resp.Data.Total)
	assert.Equal(t, 4, resp.Data.Passed)

	golden := map[string]string{}
	for _, s := range resp.Data.Scenarios {
		golden[s.Name] = s.Golden
	}
	assert.Equal(t, "match", golden["infection_chain"])
	assert.Equal(t, "none", golden["sample_infection"])
}

func TestScenario_Filter(t *testing.T) {
	out, _, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), harnessScenarios, "--filter", "phase_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ phase_ordering")
	assert.Contains(t, out, "Scenario Summary: 1 passed, 0 failed, 1 total")
}

const failingScenario = `
name: wrong_count
description: "expects too many infections"
entities:
  - type: Person
    properties:
      - { name: Status, kind: string, default: S }
create:
  - { type: Person, count: 2 }
plans:
  - label: infect
    at: 1
    actions:
      - set: { entity: "Person#0", property: Status, value: I }
assertions:
  - { type: count, entity_type: Person, where: { Status: I }, expect: 2 }
`

func TestScenario_FailureExitCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(failingScenario), 0644))

	out, _, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "Expected: 2 entities matching")
}

func TestScenario_UpdateThenMatch(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	src, err := os.ReadFile(filepath.Join(harnessScenarios, "phase_ordering.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "phase_ordering.yaml"), src, 0644))

	out, _, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ phase_ordering (golden updated)")

	written, err := os.ReadFile(filepath.Join(root, "golden", "phase_ordering.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/phase_ordering.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	require.NoError(t, os.WriteFile(filepath.Join(root, "golden", "phase_ordering.golden"), []byte("stale\n"), 0644))
	out, _, err = execute(NewScenarioCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenario_MissingPath(t *testing.T) {
	_, _, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
