// Package session runs compiled lexer definitions against input and records
// each run in the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/parlex/internal/lexdef"
	"github.com/roach88/parlex/internal/machine"
	"github.com/roach88/parlex/internal/store"
)

// Session wires definitions, machines and the run store together.
// A Session runs one scan at a time per call; concurrent Scans are safe
// because each builds its own machine.
type Session struct {
	store  *store.Store
	ids    RunIDGenerator
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(s *Session) {
		s.ids = g
	}
}

// WithNow sets the wall clock for run and transition timestamps. Default: time.Now.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithLogger sets the logger handed to every machine. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New creates a session persisting to st.
func New(st *store.Store, opts ...Option) *Session {
	s := &Session{
		store:  st,
		ids:    UUIDv7Generator{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome describes one scan.
type Outcome struct {
	RunID          string
	DefinitionHash string
	Status         string
	Ready          bool
	Problems       []machine.Validation // why the machine was not ready
	Steps          int
	Items          []store.Item
	Trace          []store.Transition
	Err            error // dispatch error or context error that ended the run
}

// Scan compiles def, runs it over input and records the run.
//
// consumer becomes the machine's parser; if it implements lexdef.Consumer it
// receives items as they are emitted. A machine that is not ready is
// recorded as skipped, a dispatch error as failed. Those are reported in the
// Outcome. The returned error is reserved for compile and storage failures.
func (s *Session) Scan(ctx context.Context, def *lexdef.Definition, input string, consumer any) (*Outcome, error) {
	cfg, err := lexdef.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	hash, err := lexdef.Hash(def)
	if err != nil {
		return nil, fmt.Errorf("hash definition: %w", err)
	}
	cfg.Input = input
	cfg.Parser = consumer

	runID := s.ids.Generate()
	logger := s.logger.With("run_id", runID, "definition", def.Name)

	// Records must outlive a cancelled scan.
	persist := context.WithoutCancel(ctx)

	rec := store.NewRecorder(persist, s.store, runID, logger)
	m := machine.New(cfg,
		machine.WithObserver(rec),
		machine.WithLogger(logger),
		machine.WithNow(s.now),
	)
	rec.Track(m)

	out := &Outcome{
		RunID:          runID,
		DefinitionHash: hash,
		Ready:          m.Ready(),
	}
	if !out.Ready {
		out.Problems = m.Diagnose()
	}

	if err := s.store.CreateRun(persist, store.Run{
		ID:             runID,
		Definition:     def.Name,
		DefinitionHash: hash,
		ItemTypes:      def.ItemTypes,
		Input:          input,
		Ready:          out.Ready,
		StartedAt:      s.now(),
	}); err != nil {
		return nil, err
	}

	out.Err = m.RunContext(ctx)
	out.Steps = m.Steps()
	out.Status = status(out.Ready, out.Err)
	out.Items = store.ItemsFrom(m.Items, m.ItemTypes())

	if err := s.store.WriteItems(persist, runID, out.Items); err != nil {
		return out, err
	}

	errMsg := ""
	if out.Err != nil {
		errMsg = out.Err.Error()
	}
	if err := s.store.FinishRun(persist, runID, store.Finish{
		Status: out.Status,
		Steps:  out.Steps,
		Error:  errMsg,
		At:     s.now(),
	}); err != nil {
		return out, err
	}

	if err := rec.Err(); err != nil {
		return out, fmt.Errorf("record trace: %d transitions lost: %w", rec.Failed(), err)
	}

	if out.Trace, err = s.store.ReadTransitions(persist, runID); err != nil {
		return out, err
	}

	logger.Info("scan recorded", "status", out.Status, "steps", out.Steps, "items", len(out.Items))
	return out, nil
}

func status(ready bool, err error) string {
	switch {
	case !ready:
		return store.StatusSkipped
	case machine.IsDispatchError(err):
		return store.StatusFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return store.StatusCancelled
	case err != nil:
		return store.StatusFailed
	default:
		return store.StatusFinished
	}
}
