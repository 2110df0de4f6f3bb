// Package machine implements the parlex scanning engine.
//
// A Machine walks a string under control of caller-supplied state functions.
// Each state function inspects and consumes input at the cursor, captures
// items, and returns the name of the next state to run, or Stop. The engine
// holds no lexical knowledge of its own; it supplies cursor bookkeeping, an
// item buffer, configuration validation and the loop that chains states.
//
// ARCHITECTURE:
//
// Readiness Gate:
// A machine is ready only when its input, state table, item type table and
// parser all validate. Setters validate one field at a time and never panic;
// a rejected value leaves the previous one in place and is reported through
// LastRejection and Diagnose. Run on a machine that is not ready does nothing.
//
// Dispatch Loop:
// Run starts at the "init" state and looks up every returned name in the
// state table. Names that are missing, or mapped to an explicit nil
// placeholder, abort the run with a *DispatchError. The loop is
// single-threaded and has no step limit.
//
// Hooks:
// Before and after every state invocation the machine notifies hooks
// registered for that state name, then hooks for any state, then observers.
// Each event carries a logical sequence number from the machine's Clock.
// Hooks are notifications only; a panicking hook is recovered and logged.
//
// Usage:
//
//	m := machine.New(machine.Config{
//	    Input:     "3+4",
//	    ItemTypes: map[string]machine.ItemType{"NUM": 0},
//	    StateFunctions: map[string]machine.StateFn{
//	        "init": lexNumber,
//	    },
//	})
//	if err := m.Run(); err != nil {
//	    log.Fatal(err)
//	}
//	for _, it := range m.Items { ... }
package machine
