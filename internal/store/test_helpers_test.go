package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, started time.Time) Run {
	return Run{
		ID:             id,
		Definition:     "arith",
		DefinitionHash: "test-hash",
		ItemTypes:      map[string]int{"NUM": 0, "OP": 1},
		Input:          "3+4",
		Ready:          true,
		StartedAt:      started,
	}
}

// mustCreateRun inserts a test run or fails the test.
func mustCreateRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := createTestRun(id, testStart)
	if err := s.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	return run
}
