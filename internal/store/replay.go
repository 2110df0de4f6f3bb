package store

import (
	"context"
	"fmt"
	"strconv"
)

// RunLog is everything recorded for one run, in replay order.
type RunLog struct {
	Run         Run
	Transitions []Transition
	Items       []Item
}

// ReadRunLog retrieves a run with its transitions and items.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadRunLog(ctx context.Context, runID string) (RunLog, error) {
	var log RunLog

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return log, err
	}
	log.Run = run

	if log.Transitions, err = s.ReadTransitions(ctx, runID); err != nil {
		return log, fmt.Errorf("read run log: %w", err)
	}
	if log.Items, err = s.ReadItems(ctx, runID); err != nil {
		return log, fmt.Errorf("read run log: %w", err)
	}
	return log, nil
}

// Divergence is one difference between a recorded run and its replay.
type Divergence struct {
	Field    string `json:"field"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s: recorded %s, replayed %s", d.Field, d.Recorded, d.Replayed)
}

// CompareRunLogs lists every difference between two runs of the same input.
// Run IDs and timestamps are ignored; everything else a scan determines
// must match for the runs to be equivalent. An empty result means the
// replay reproduced the recording.
func CompareRunLogs(recorded, replayed RunLog) []Divergence {
	var out []Divergence
	diff := func(field, a, b string) {
		if a != b {
			out = append(out, Divergence{Field: field, Recorded: a, Replayed: b})
		}
	}

	diff("definition_hash", recorded.Run.DefinitionHash, replayed.Run.DefinitionHash)
	diff("input", strconv.Quote(recorded.Run.Input), strconv.Quote(replayed.Run.Input))
	diff("ready", strconv.FormatBool(recorded.Run.Ready), strconv.FormatBool(replayed.Run.Ready))
	diff("status", recorded.Run.Status, replayed.Run.Status)
	diff("steps", strconv.Itoa(recorded.Run.Steps), strconv.Itoa(replayed.Run.Steps))
	diff("error", strconv.Quote(recorded.Run.Error), strconv.Quote(replayed.Run.Error))

	diff("transitions", strconv.Itoa(len(recorded.Transitions)), strconv.Itoa(len(replayed.Transitions)))
	for i := 0; i < min(len(recorded.Transitions), len(replayed.Transitions)); i++ {
		diff(fmt.Sprintf("transitions[%d]", i), transitionKey(recorded.Transitions[i]), transitionKey(replayed.Transitions[i]))
	}

	diff("items", strconv.Itoa(len(recorded.Items)), strconv.Itoa(len(replayed.Items)))
	for i := 0; i < min(len(recorded.Items), len(replayed.Items)); i++ {
		diff(fmt.Sprintf("items[%d]", i), itemKey(recorded.Items[i]), itemKey(replayed.Items[i]))
	}
	return out
}

func transitionKey(tr Transition) string {
	next := tr.Next
	if next == "" {
		next = "(stop)"
	}
	return fmt.Sprintf("#%d %s -> %s cursor=%d items=%d", tr.Seq, tr.State, next, tr.Cursor, tr.Items)
}

func itemKey(it Item) string {
	return fmt.Sprintf("%d(%s) %q @%d", it.Type, it.TypeName, it.Value, it.Pos)
}
