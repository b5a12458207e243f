package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/simkernel/internal/plan"
)

// Scenario is a scripted simulation with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the base seed for random streams.
	Seed uint64 `yaml:"seed,omitempty"`

	// StartTime sets the clock before anything is created.
	StartTime *float64 `yaml:"start_time,omitempty"`

	Entities   []EntityDef  `yaml:"entities"`
	Create     []CreateStep `yaml:"create,omitempty"`
	Plans      []PlanStep   `yaml:"plans"`
	Assertions []Assertion  `yaml:"assertions,omitempty"`
}

// EntityDef declares an entity type.
type EntityDef struct {
	Type         string        `yaml:"type"`
	Properties   []PropertyDef `yaml:"properties"`
	Indexes      []string      `yaml:"indexes,omitempty"`
	MultiIndexes [][]string    `yaml:"multi_indexes,omitempty"`
}

// PropertyDef declares a stored property.
type PropertyDef struct {
	Name string `yaml:"name"`

	// Kind is one of int, float, string, bool.
	Kind string `yaml:"kind"`

	// Default makes the property optional at creation.
	Default any `yaml:"default,omitempty"`
}

// CreateStep creates Count entities of Type with the same initial values.
type CreateStep struct {
	Type   string         `yaml:"type"`
	Count  int            `yaml:"count,omitempty"`
	Values map[string]any `yaml:"values,omitempty"`
}

// PlanStep schedules actions. With Every set the plan is periodic,
// starting at the start time.
type PlanStep struct {
	Label   string   `yaml:"label"`
	At      float64  `yaml:"at,omitempty"`
	Every   float64  `yaml:"every,omitempty"`
	Phase   string   `yaml:"phase,omitempty"`
	Actions []Action `yaml:"actions,omitempty"`
}

// Action is one step of a plan. Exactly one field is set.
type Action struct {
	Set      *SetAction    `yaml:"set,omitempty"`
	Create   *CreateStep   `yaml:"create,omitempty"`
	Sample   *SampleAction `yaml:"sample,omitempty"`
	Cancel   string        `yaml:"cancel,omitempty"`
	Callback []Action      `yaml:"callback,omitempty"`
	Shutdown bool          `yaml:"shutdown,omitempty"`
}

// SetAction writes Value to Property of Entity ("Type#row").
type SetAction struct {
	Entity   string `yaml:"entity"`
	Property string `yaml:"property"`
	Value    any    `yaml:"value"`
}

// SampleAction picks one entity of Type matching Where and writes Value to
// Property.
type SampleAction struct {
	Type     string         `yaml:"type"`
	Where    map[string]any `yaml:"where,omitempty"`
	Property string         `yaml:"property"`
	Value    any            `yaml:"value"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of count, value, trace_order, trace_count.
	Type string `yaml:"type"`

	// EntityType and Where select entities (count).
	EntityType string         `yaml:"entity_type,omitempty"`
	Where      map[string]any `yaml:"where,omitempty"`

	// Entity and Property select one value (value).
	Entity   string `yaml:"entity,omitempty"`
	Property string `yaml:"property,omitempty"`

	// Expect is the expected count or value.
	Expect any `yaml:"expect,omitempty"`

	// Labels is the expected plan order (trace_order).
	Labels []string `yaml:"labels,omitempty"`

	// Contains and Count check trace lines (trace_count).
	Contains string `yaml:"contains,omitempty"`
	Count    int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCount      = "count"
	AssertValue      = "value"
	AssertTraceOrder = "trace_order"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks structure. Names are resolved when the scenario
// runs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Entities) == 0 {
		return fmt.Errorf("entities list is required and must be non-empty")
	}

	for i, e := range s.Entities {
		if e.Type == "" {
			return fmt.Errorf("entities[%d]: type is required", i)
		}
		for j, p := range e.Properties {
			if p.Name == "" {
				return fmt.Errorf("entities[%d].properties[%d]: name is required", i, j)
			}
			if _, ok := kinds[p.Kind]; !ok {
				return fmt.Errorf("entities[%d].properties[%d]: unknown kind %q", i, j, p.Kind)
			}
		}
	}

	for i, c := range s.Create {
		if c.Type == "" {
			return fmt.Errorf("create[%d]: type is required", i)
		}
		if c.Count < 0 {
			return fmt.Errorf("create[%d]: count must be non-negative", i)
		}
	}

	// Only one-shot plans can be cancelled.
	labels := make(map[string]bool)
	cancellable := make(map[string]bool)
	for i, p := range s.Plans {
		if p.Label == "" {
			return fmt.Errorf("plans[%d]: label is required", i)
		}
		if labels[p.Label] {
			return fmt.Errorf("plans[%d]: duplicate label %q", i, p.Label)
		}
		labels[p.Label] = true
		cancellable[p.Label] = p.Every == 0
	}

	for i, p := range s.Plans {
		if _, err := plan.ParsePhase(p.Phase); err != nil {
			return fmt.Errorf("plans[%d]: %w", i, err)
		}
		if p.Every < 0 {
			return fmt.Errorf("plans[%d]: every must be positive", i)
		}
		if p.Every > 0 && p.At != 0 {
			return fmt.Errorf("plans[%d]: periodic plans start at the start time; remove at", i)
		}
		if err := validateActions(fmt.Sprintf("plans[%d]", i), p.Actions, cancellable); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateActions(path string, actions []Action, cancellable map[string]bool) error {
	for i, a := range actions {
		at := fmt.Sprintf("%s.actions[%d]", path, i)
		set := 0
		if a.Set != nil {
			set++
			if a.Set.Entity == "" || a.Set.Property == "" {
				return fmt.Errorf("%s: set needs entity and property", at)
			}
		}
		if a.Create != nil {
			set++
			if a.Create.Type == "" {
				return fmt.Errorf("%s: create needs type", at)
			}
		}
		if a.Sample != nil {
			set++
			if a.Sample.Type == "" || a.Sample.Property == "" {
				return fmt.Errorf("%s: sample needs type and property", at)
			}
		}
		if a.Cancel != "" {
			set++
			if !cancellable[a.Cancel] {
				return fmt.Errorf("%s: cancel %q names no one-shot plan", at, a.Cancel)
			}
		}
		if a.Callback != nil {
			set++
			if err := validateActions(at+".callback", a.Callback, cancellable); err != nil {
				return err
			}
		}
		if a.Shutdown {
			set++
		}
		if set != 1 {
			return fmt.Errorf("%s: exactly one of set, create, sample, cancel, callback, shutdown is required", at)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCount:
		if a.EntityType == "" {
			return fmt.Errorf("assertions[%d]: entity_type is required for count", index)
		}
		if _, ok := a.Expect.(int); !ok {
			return fmt.Errorf("assertions[%d]: expect must be an integer for count", index)
		}
	case AssertValue:
		if a.Entity == "" || a.Property == "" {
			return fmt.Errorf("assertions[%d]: entity and property are required for value", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for value", index)
		}
	case AssertTraceOrder:
		if len(a.Labels) == 0 {
			return fmt.Errorf("assertions[%d]: labels list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
