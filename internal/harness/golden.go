package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/parlex/internal/canonical"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
// Timestamps are left out so snapshots compare byte for byte.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id"`
	Status       string       `json:"status"`
	Steps        int          `json:"steps"`
	Error        string       `json:"error,omitempty"`
	Trace        []TraceEvent `json:"trace"`
	Items        []ItemEvent  `json:"items"`
}

// NewSnapshot builds the snapshot of result under the given scenario name.
func NewSnapshot(scenarioName string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenarioName,
		RunID:        result.RunID,
		Status:       result.Status,
		Steps:        result.Steps,
		Error:        result.Err,
		Trace:        result.Trace,
		Items:        result.Items,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		traceList[i] = map[string]any{
			"seq":    event.Seq,
			"state":  event.State,
			"next":   event.Next,
			"cursor": event.Cursor,
			"items":  event.Items,
		}
	}

	itemList := make([]any, len(s.Items))
	for i, it := range s.Items {
		itemList[i] = map[string]any{
			"type":  it.Type,
			"value": it.Value,
			"pos":   it.Pos,
		}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.RunID,
		"status":        s.Status,
		"steps":         s.Steps,
		"trace":         traceList,
		"items":         itemList,
	}
	if s.Error != "" {
		result["error"] = s.Error
	}
	return result
}

// Marshal renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return canonical.Marshal(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
