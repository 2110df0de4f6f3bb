// Package harness provides conformance testing for lexer definitions.
//
// A scenario names a definition, an input and the outcome expected from
// scanning it. The harness runs the scan through a session backed by an
// in-memory store, then checks the expect clause and the assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: arith_sum
//	description: "numbers and operators"
//	definition: ../lexers/arith.yaml
//	input: "3 + 42"
//	run_id: run-arith-sum
//	expect:
//	  status: finished
//	  steps: 6
//	  items:
//	    - { type: NUM, value: "3", pos: 0 }
//	assertions:
//	  - type: trace_count
//	    state: init
//	    count: 6
//
// # Assertion Types
//
//   - trace_order: states are visited in the given relative order
//   - trace_count: a state is invoked exactly N times
//   - item_count: exactly N items of a type are emitted
//   - items_equal: the emitted items match a list
//   - run_status: the stored run has the given status
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run ID (scenario.run_id, or
// "test-run-default") and testutil.DeterministicClock, so traces are
// identical across runs and can be compared against golden snapshots.
package harness
