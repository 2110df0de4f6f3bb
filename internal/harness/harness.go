package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/parlex/internal/lexdef"
	"github.com/roach88/parlex/internal/session"
	"github.com/roach88/parlex/internal/store"
	"github.com/roach88/parlex/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fixed run ID and a
// deterministic clock, so identical scenarios produce identical results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the definition named by the scenario
// 3. Scan the input through a session
// 4. Check the expect clause and evaluate assertions
//
// A returned error means the scenario could not be executed at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	def, err := lexdef.LoadFile(scenario.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition: %w", err)
	}

	clock := testutil.NewDeterministicClock()
	sess := session.New(st,
		session.WithRunIDs(testutil.NewFixedRunIDs(scenario.RunID)),
		session.WithNow(clock.Now),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx := context.Background()
	out, err := sess.Scan(ctx, def, scenario.Input, nil)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	result := NewResult()
	result.RunID = out.RunID
	result.Status = out.Status
	result.Ready = out.Ready
	result.Steps = out.Steps
	result.Trace = traceEvents(out.Trace)
	result.Items = itemEvents(out.Items)
	if out.Err != nil {
		result.Err = out.Err.Error()
	}

	if scenario.Expect != nil {
		checkExpect(result, scenario.Expect)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: out.RunID}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkExpect compares the scan outcome against the expect clause.
func checkExpect(result *Result, expect *ExpectClause) {
	if expect.Ready != nil && result.Ready != *expect.Ready {
		result.AddError(fmt.Sprintf("expected ready=%t, got %t", *expect.Ready, result.Ready))
	}
	if expect.Status != "" && result.Status != expect.Status {
		result.AddError(fmt.Sprintf("expected status %s, got %s", expect.Status, result.Status))
	}
	if expect.Steps != nil && result.Steps != *expect.Steps {
		result.AddError(fmt.Sprintf("expected %d steps, got %d", *expect.Steps, result.Steps))
	}

	switch {
	case expect.Error == "" && result.Err != "":
		result.AddError(fmt.Sprintf("unexpected error: %s", result.Err))
	case expect.Error != "" && result.Err == "":
		result.AddError(fmt.Sprintf("expected error containing %q, run ended cleanly", expect.Error))
	case expect.Error != "" && !strings.Contains(result.Err, expect.Error):
		result.AddError(fmt.Sprintf("expected error containing %q, got %q", expect.Error, result.Err))
	}

	if expect.Items != nil {
		if msg := compareItems(result.Items, expect.Items); msg != "" {
			result.AddError("items mismatch: " + msg)
		}
	}
}
