package testutil

// FixedRunIDs returns the same run ID every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedRunIDs produces byte-identical traces.
//
// Thread-safety: FixedRunIDs is stateless and safe for concurrent use.
type FixedRunIDs struct {
	id string
}

// NewFixedRunIDs creates a new fixed run ID generator.
//
// The ID is typically set in the scenario YAML:
//
//	run_id: "run-00000000-0000-0000-0000-000000000001"
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDs(id string) *FixedRunIDs {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDs{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunIDs) Generate() string {
	return g.id
}
