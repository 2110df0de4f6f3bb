package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, definition, definition_hash, item_types, input, ready, status, steps, error, started_at, finished_at`

// GetRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns all runs ordered by start time, then ID.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTransitions returns a run's trace ordered by seq.
// Returns an empty slice (not nil) if the run has no transitions.
func (s *Store) ReadTransitions(ctx context.Context, runID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, state, next, cursor, items, at
		FROM transitions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	trace := []Transition{}
	for rows.Next() {
		var tr Transition
		var at string
		if err := rows.Scan(&tr.Seq, &tr.State, &tr.Next, &tr.Cursor, &tr.Items, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if tr.At, err = parseTime(at); err != nil {
			return nil, err
		}
		trace = append(trace, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return trace, nil
}

// ReadItems returns a run's items in emission order.
// Returns an empty slice (not nil) if the run captured nothing.
func (s *Store) ReadItems(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, type, type_name, value, pos
		FROM items
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Index, &it.Type, &it.TypeName, &it.Value, &it.Pos); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// CountTransitions returns how many times state ran in a run.
func (s *Store) CountTransitions(ctx context.Context, runID, state string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transitions WHERE run_id = ? AND state = ?
	`, runID, state).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transitions: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var typesJSON, startedAt, finishedAt string
	var ready int

	err := row.Scan(
		&run.ID,
		&run.Definition,
		&run.DefinitionHash,
		&typesJSON,
		&run.Input,
		&ready,
		&run.Status,
		&run.Steps,
		&run.Error,
		&startedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Ready = ready != 0
	if run.ItemTypes, err = unmarshalItemTypes(typesJSON); err != nil {
		return Run{}, err
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return Run{}, err
	}
	return run, nil
}
