// Package harness runs collection scenarios as executable contract tests.
//
// A scenario names CUE collection definitions, dispatches a sequence of
// commands against one collection, and asserts on the final state and on
// the journaled trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	collections:
//	  - ../collections/todo.cue
//	collection: todo
//	steps:
//	  - command: add
//	    args: { records: [{ title: "write docs" }] }
//	  - command: updateActive
//	    args: { data: { done: true } }
//	    expect:
//	      error: NO_ACTIVE_ENTITY
//	assertions:
//	  - type: view
//	    view: size
//	    expect: 1
//	  - type: entity
//	    id: "0"
//	    expect: { title: "write docs" }
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - view: Evaluates a named selector and compares it exactly
//   - entity: Checks a record by id with subset semantics, or its absence
//   - order: Checks the insertion order of ids
//   - trace_count: Checks a command kind was dispatched exactly N times
//   - trace_order: Checks command kinds were dispatched in order
//
// # Deterministic Testing
//
// Every run uses a fixed run id (scenario.run_id or "test-run-default"), a
// deterministic logical clock (testutil.DeterministicClock) and, unless
// WithJournal is given, a fresh in-memory journal. Golden files compare the
// canonical JSON of the trace and final state, so identical scenarios
// produce byte-identical output.
package harness
