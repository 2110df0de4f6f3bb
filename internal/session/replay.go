package session

import (
	"context"
	"fmt"

	"github.com/roach88/parlex/internal/lexdef"
	"github.com/roach88/parlex/internal/store"
)

// ReplayReport compares a recorded run with a fresh scan of the same input.
type ReplayReport struct {
	RecordedID  string
	Outcome     *Outcome // the replay scan, recorded in the session's store
	Divergences []store.Divergence
}

// Reproduced reports whether the replay matched the recording exactly.
func (r *ReplayReport) Reproduced() bool {
	return len(r.Divergences) == 0
}

// Replay re-scans the input of run runID from src with def and compares
// the two runs transition by transition and item by item.
//
// Scans are deterministic, so replaying with the definition that made the
// recording reproduces it. Replaying with an edited definition shows how
// the edit changes the scan of recorded inputs. src may be the session's
// own store; the replay is recorded under a new run ID.
func (s *Session) Replay(ctx context.Context, src *store.Store, runID string, def *lexdef.Definition) (*ReplayReport, error) {
	recorded, err := src.ReadRunLog(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	out, err := s.Scan(ctx, def, recorded.Run.Input, nil)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	replayed, err := s.store.ReadRunLog(context.WithoutCancel(ctx), out.RunID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	report := &ReplayReport{
		RecordedID:  runID,
		Outcome:     out,
		Divergences: store.CompareRunLogs(recorded, replayed),
	}
	s.logger.Info("replay compared",
		"run_id", runID,
		"replay_id", out.RunID,
		"divergences", len(report.Divergences),
	)
	return report, nil
}
