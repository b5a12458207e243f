// Package harness runs YAML scenarios against the simulation kernel.
//
// A scenario declares entity types, an initial population, timed plans
// made of actions, and assertions over the final state and the trace. The
// harness records every plan execution, entity creation and property change
// as one text line, so a scenario's trace can be compared against a golden
// file.
//
// # Scenario Format
//
//	name: infection_chain
//	description: "What this scenario validates"
//	seed: 0
//	start_time: 0
//	entities:
//	  - type: Person
//	    properties:
//	      - { name: Status, kind: string, default: S }
//	      - { name: Age, kind: int }
//	    indexes: [Status]
//	    multi_indexes: [[Age, Status]]
//	create:
//	  - { type: Person, count: 3, values: { Age: 30 } }
//	plans:
//	  - label: infect
//	    at: 1
//	    phase: first
//	    actions:
//	      - set: { entity: "Person#1", property: Status, value: I }
//	assertions:
//	  - { type: count, entity_type: Person, where: { Status: I }, expect: 1 }
//
// Property kinds are int, float, string and bool. A property without a
// default must be given a value at creation.
//
// # Actions
//
//   - set: write a property of one entity
//   - create: create entities
//   - sample: pick one matching entity at random and write a property
//   - cancel: cancel a plan by label
//   - callback: queue actions to run before the next plan
//   - shutdown: stop the run
//
// # Assertion Types
//
//   - count: number of entities matching a conjunction of values
//   - value: value of one property of one entity
//   - trace_order: plan labels appear in this relative order
//   - trace_count: number of trace lines containing a substring
//
// # Trace Lines
//
//	t=1 plan infect [normal]
//	t=1 change Person#1.Status "S" -> "I"
//	t=0 created Person#0
//	t=3 end plans=4 pending=0
//
// Times use the shortest decimal form. Values use their canonical text.
package harness
