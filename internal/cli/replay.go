package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/parlex/internal/lexdef"
	"github.com/roach88/parlex/internal/session"
	"github.com/roach88/parlex/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
	Record   bool // record the replay in --db instead of in memory
}

// ReplayResult is the outcome of comparing a recorded run with its replay.
type ReplayResult struct {
	RunID       string             `json:"run_id"`
	ReplayID    string             `json:"replay_id"`
	Definition  string             `json:"definition"`
	Reproduced  bool               `json:"reproduced"`
	Status      string             `json:"status"`
	Divergences []store.Divergence `json:"divergences"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <definition>",
		Short: "Re-scan a recorded run and compare",
		Long: `Re-scan the input of a recorded run with a definition and compare the
new run against the recording, transition by transition and item by item.

Replaying with the definition that made the recording must reproduce it.
Replaying with an edited definition shows what the edit changes.

Exit codes:
  0 - Replay reproduced the recorded run
  1 - Replay diverged
  2 - Command error (bad definition, unknown run, etc.)

Examples:
  parlex replay ./lexers/arith.yaml --db runs.db --run 0190c6d2-...
  parlex replay ./lexers/arith.yaml --db runs.db --run 0190c6d2-... --record`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to replay (required)")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the replay in the database")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, defPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	def, err := LoadDefinition(defPath)
	if err != nil {
		return formatter.LoadFailure(err)
	}

	src, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer src.Close()

	dst := src
	if !opts.Record {
		if dst, err = store.Open(":memory:"); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open replay store", err)
		}
		defer dst.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess := session.New(dst, session.WithLogger(opts.logger()))
	report, err := sess.Replay(ctx, src, opts.RunID, def)
	if err != nil {
		var issue lexdef.Issue
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		case errors.As(err, &issue):
			_ = formatter.Error(issue.Code, issue.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid definition", err)
		default:
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "replay failed", err)
		}
	}

	result := ReplayResult{
		RunID:       report.RecordedID,
		ReplayID:    report.Outcome.RunID,
		Definition:  def.Name,
		Reproduced:  report.Reproduced(),
		Status:      report.Outcome.Status,
		Divergences: report.Divergences,
	}
	if result.Divergences == nil {
		result.Divergences = []store.Divergence{}
	}

	if formatter.isJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Reproduced {
			resp.Status = "error"
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter.Writer, result)
	}

	if !result.Reproduced {
		return NewExitError(ExitFailure, fmt.Sprintf("replay diverged in %d place(s)", len(result.Divergences)))
	}
	return nil
}

func outputReplayText(w io.Writer, result ReplayResult) {
	fmt.Fprintf(w, "Replay of %s as %s (%s)\n", truncateID(result.RunID), truncateID(result.ReplayID), result.Status)

	if result.Reproduced {
		fmt.Fprintln(w, "✓ Replay reproduced the recorded run")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Divergences ===")
	for _, d := range result.Divergences {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✗ Replay diverged in %d place(s)\n", len(result.Divergences))
}
