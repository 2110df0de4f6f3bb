package store

import (
	"context"
	"fmt"
)

// CreateRun inserts a run record with status running.
// The run's status, steps, error and finish time are set later by FinishRun.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	typesJSON, err := marshalItemTypes(run.ItemTypes)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, definition, definition_hash, item_types, input, ready, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Definition,
		run.DefinitionHash,
		typesJSON,
		run.Input,
		boolToInt(run.Ready),
		StatusRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records the final status of a run.
func (s *Store) FinishRun(ctx context.Context, id string, fin Finish) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, steps = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, fin.Status, fin.Steps, fin.Error, formatTime(fin.At), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %q not found", id)
	}
	return nil
}

// WriteTransition appends one state invocation to a run's trace.
// The run must exist (foreign key constraint).
func (s *Store) WriteTransition(ctx context.Context, runID string, tr Transition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions (run_id, seq, state, next, cursor, items, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		tr.Seq,
		tr.State,
		tr.Next,
		tr.Cursor,
		tr.Items,
		formatTime(tr.At),
	)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

// WriteItems stores a run's items atomically. Item indexes come from the
// items themselves, so writing the same slice twice fails on the primary key.
func (s *Store) WriteItems(ctx context.Context, runID string, items []Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write items: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (run_id, idx, type, type_name, value, pos)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write items: prepare: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, runID, it.Index, it.Type, it.TypeName, it.Value, it.Pos); err != nil {
			return fmt.Errorf("write items: item %d: %w", it.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write items: commit: %w", err)
	}
	return nil
}
