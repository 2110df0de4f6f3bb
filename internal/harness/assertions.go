package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/parlex/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		next := event.Next
		if next == "" {
			next = "(stop)"
		}
		fmt.Fprintf(&buf, "  [%d] %s -> %s cursor=%d items=%d\n", event.Seq, event.State, next, event.Cursor, event.Items)
	}

	return buf.String()
}

// AssertionContext gives assertions access to the recorded run.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// assertTraceOrder checks that the states are visited in the given relative
// order. Other states may appear in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.States) && event.State == assertion.States[next] {
			next++
		}
	}
	if next == len(assertion.States) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("states in order: %v", assertion.States),
		Actual:   fmt.Sprintf("no visit to %s after %v", assertion.States[next], assertion.States[:next]),
		Trace:    trace,
	}
}

// assertTraceCount checks that a state was invoked exactly Count times.
// With a store in actx the recorded transitions are counted, otherwise the
// in-memory trace.
func assertTraceCount(trace []TraceEvent, assertion Assertion, actx *AssertionContext) error {
	if assertion.Count == nil {
		return fmt.Errorf("trace_count: count is required")
	}
	count := 0
	if actx != nil && actx.Store != nil {
		n, err := actx.Store.CountTransitions(actx.Ctx, actx.RunID, assertion.State)
		if err != nil {
			return fmt.Errorf("trace_count: %w", err)
		}
		count = n
	} else {
		for _, event := range trace {
			if event.State == assertion.State {
				count++
			}
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d invocations of %s", *assertion.Count, assertion.State),
			Actual:   fmt.Sprintf("%d invocations", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertItemCount checks that exactly Count items of the named type were emitted.
func assertItemCount(result *Result, assertion Assertion) error {
	if assertion.Count == nil {
		return fmt.Errorf("item_count: count is required")
	}
	count := 0
	for _, it := range result.Items {
		if it.Type == assertion.Item {
			count++
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertItemCount,
			Expected: fmt.Sprintf("%d items of type %s", *assertion.Count, assertion.Item),
			Actual:   fmt.Sprintf("%d items", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertItemsEqual checks the emitted items against the expected list.
func assertItemsEqual(result *Result, assertion Assertion) error {
	if msg := compareItems(result.Items, assertion.Items); msg != "" {
		return &AssertionError{
			Type:     AssertItemsEqual,
			Expected: formatExpectedItems(assertion.Items),
			Actual:   msg,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertRunStatus checks the status stored for the run.
func assertRunStatus(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	run, err := actx.Store.GetRun(actx.Ctx, actx.RunID)
	if err != nil {
		return &AssertionError{
			Type:     AssertRunStatus,
			Expected: fmt.Sprintf("run %s", actx.RunID),
			Actual:   fmt.Sprintf("query error: %v", err),
			Trace:    trace,
		}
	}

	if run.Status != assertion.Status {
		return &AssertionError{
			Type:     AssertRunStatus,
			Expected: fmt.Sprintf("status %s", assertion.Status),
			Actual:   fmt.Sprintf("status %s", run.Status),
			Trace:    trace,
		}
	}
	return nil
}

// compareItems returns "" when actual matches expected, otherwise a
// description of the first difference.
func compareItems(actual []ItemEvent, expected []ItemExpect) string {
	for i, exp := range expected {
		if i >= len(actual) {
			return fmt.Sprintf("only %d items, missing items[%d] %s %q", len(actual), i, exp.Type, exp.Value)
		}
		got := actual[i]
		if got.Type != exp.Type || got.Value != exp.Value {
			return fmt.Sprintf("items[%d] is %s %q, want %s %q", i, got.Type, got.Value, exp.Type, exp.Value)
		}
		if exp.Pos != nil && got.Pos != *exp.Pos {
			return fmt.Sprintf("items[%d] at pos %d, want %d", i, got.Pos, *exp.Pos)
		}
	}
	if len(actual) > len(expected) {
		extra := actual[len(expected)]
		return fmt.Sprintf("%d items, unexpected items[%d] %s %q", len(actual), len(expected), extra.Type, extra.Value)
	}
	return ""
}

func formatExpectedItems(items []ItemExpect) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s %q", it.Type, it.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for run_status and trace_count.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion, actx)
		case AssertItemCount:
			err = assertItemCount(result, assertion)
		case AssertItemsEqual:
			err = assertItemsEqual(result, assertion)
		case AssertRunStatus:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: run_status requires database context", i)
			} else {
				err = assertRunStatus(actx, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
