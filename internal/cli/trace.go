package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/parlex/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show one run instead of listing
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID         string `json:"id"`
	Definition string `json:"definition"`
	Status     string `json:"status"`
	Steps      int    `json:"steps"`
	StartedAt  string `json:"started_at"`
}

// TraceEvent is one state invocation in the timeline.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	State  string `json:"state"`
	Next   string `json:"next"`
	Cursor int    `json:"cursor"`
	Items  int    `json:"items"`
}

// TraceResult holds the complete trace of one run.
type TraceResult struct {
	RunID          string       `json:"run_id"`
	Definition     string       `json:"definition"`
	DefinitionHash string       `json:"definition_hash"`
	Input          string       `json:"input"`
	Status         string       `json:"status"`
	Ready          bool         `json:"ready"`
	Error          string       `json:"error,omitempty"`
	Timeline       []TraceEvent `json:"timeline"`
	Items          []ScanItem   `json:"items"`
	Stats          TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Steps       int            `json:"steps"`
	Items       int            `json:"items"`
	StateVisits map[string]int `json:"state_visits"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs",
		Long: `Show runs recorded by scan.

Without --run, lists every run in start order. With --run, shows the
run's state timeline, the items it emitted and summary statistics.

Examples:
  parlex trace --db ./runs.db
  parlex trace --db ./runs.db --run 0190c6d2-...
  parlex trace --db ./runs.db --run 0190c6d2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, formatter)
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	transitions, err := st.ReadTransitions(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read transitions", err)
	}
	items, err := st.ReadItems(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read items", err)
	}

	result := buildTrace(run, transitions, items)
	if formatter.isJSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			ID:         r.ID,
			Definition: r.Definition,
			Status:     r.Status,
			Steps:      r.Steps,
			StartedAt:  r.StartedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	if formatter.isJSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: summaries})
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-10s %-9s %4d steps  %s\n", s.StartedAt, s.Definition, s.Status, s.Steps, s.ID)
	}
	return nil
}

// buildTrace assembles the trace result from stored rows.
func buildTrace(run store.Run, transitions []store.Transition, items []store.Item) TraceResult {
	result := TraceResult{
		RunID:          run.ID,
		Definition:     run.Definition,
		DefinitionHash: run.DefinitionHash,
		Input:          run.Input,
		Status:         run.Status,
		Ready:          run.Ready,
		Error:          run.Error,
		Timeline:       make([]TraceEvent, len(transitions)),
		Items:          make([]ScanItem, len(items)),
		Stats: TraceStats{
			Steps:       run.Steps,
			Items:       len(items),
			StateVisits: make(map[string]int),
		},
	}

	for i, tr := range transitions {
		result.Timeline[i] = TraceEvent{
			Seq:    tr.Seq,
			State:  tr.State,
			Next:   tr.Next,
			Cursor: tr.Cursor,
			Items:  tr.Items,
		}
		result.Stats.StateVisits[tr.State]++
	}
	for i, it := range items {
		result.Items[i] = ScanItem{Type: it.Type, TypeName: it.TypeName, Value: it.Value, Pos: it.Pos}
	}
	return result
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Definition: %s (%s)\n", result.Definition, truncateID(result.DefinitionHash))
	fmt.Fprintf(w, "Status: %s\n", result.Status)
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}
	if verbose {
		fmt.Fprintf(w, "Input: %q\n", result.Input)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no transitions)")
	}
	for _, ev := range result.Timeline {
		next := ev.Next
		if next == "" {
			next = "(stop)"
		}
		fmt.Fprintf(w, "  [%d] %s -> %s\n", ev.Seq, ev.State, next)
		if verbose {
			fmt.Fprintf(w, "       cursor=%d items=%d\n", ev.Cursor, ev.Items)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Items ===")
	if len(result.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
	}
	for _, it := range result.Items {
		fmt.Fprintf(w, "  %s\n", formatItem(it.TypeName, it.Type, it.Value, it.Pos))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Steps: %d\n", result.Stats.Steps)
	fmt.Fprintf(w, "  Items: %d\n", result.Stats.Items)
}

// truncateID truncates a long ID or hash for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
