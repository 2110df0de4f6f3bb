package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/parlex/internal/machine"
)

// Recorder is a machine.Observer that writes one transition per state
// invocation. Write failures are logged and kept for Err; they never reach
// the run loop.
type Recorder struct {
	store  *Store
	ctx    context.Context
	runID  string
	logger *slog.Logger

	m *machine.Machine

	mu     sync.Mutex
	err    error
	failed int
}

// NewRecorder returns a recorder writing transitions for runID.
func NewRecorder(ctx context.Context, st *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  st,
		ctx:    ctx,
		runID:  runID,
		logger: logger,
	}
}

// Track lets the recorder read the cursor and item count of m when a state
// returns. Without it those columns are written as zero.
func (r *Recorder) Track(m *machine.Machine) {
	r.m = m
}

// BeforeState implements machine.Observer. Transitions are written once the
// state has returned.
func (r *Recorder) BeforeState(machine.StateEvent) {}

// AfterState implements machine.Observer.
func (r *Recorder) AfterState(ev machine.StateEvent) {
	tr := Transition{
		Seq:   ev.Seq,
		State: ev.StateName,
		Next:  ev.Next,
		At:    ev.Time,
	}
	if r.m != nil {
		tr.Cursor = r.m.Cursor
		tr.Items = len(r.m.Items)
	}

	if err := r.store.WriteTransition(r.ctx, r.runID, tr); err != nil {
		r.logger.Warn("transition not recorded", "run_id", r.runID, "seq", ev.Seq, "state", ev.StateName, "error", err)

		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.failed++
		r.mu.Unlock()
	}
}

// Err returns the first write failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Failed returns the number of transitions that could not be written.
func (r *Recorder) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}
