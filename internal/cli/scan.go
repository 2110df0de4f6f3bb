package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/parlex/internal/lexdef"
	"github.com/roach88/parlex/internal/machine"
	"github.com/roach88/parlex/internal/session"
	"github.com/roach88/parlex/internal/store"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	Input    string
	File     string
	Database string
	Stream   bool

	// RunIDs and Now override run ID generation and the clock (for testing).
	RunIDs session.RunIDGenerator
	Now    func() time.Time
}

// ScanItem is one item in scan output.
type ScanItem struct {
	Type     int    `json:"type"`
	TypeName string `json:"type_name"`
	Value    string `json:"value"`
	Pos      int    `json:"pos"`
}

// ScanResult is the outcome of the scan command.
type ScanResult struct {
	RunID          string     `json:"run_id"`
	Definition     string     `json:"definition"`
	DefinitionHash string     `json:"definition_hash"`
	Status         string     `json:"status"`
	Ready          bool       `json:"ready"`
	Steps          int        `json:"steps"`
	Items          []ScanItem `json:"items"`
	Problems       []string   `json:"problems,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan <definition>",
		Short: "Scan input with a lexer definition",
		Long: `Compile a CUE or YAML lexer definition and scan input with it.

The run, its state transitions and the emitted items are recorded in the
database given by --db (in memory when omitted). Interrupting the scan
stops it between states; the partial run is still recorded.

Exit codes:
  0 - Scan finished
  1 - Scan failed, was cancelled, or the machine was not ready
  2 - Command error (bad definition, unreadable input, etc.)

Examples:
  parlex scan ./lexers/arith.yaml --input "3 + 42"
  parlex scan ./lexers/kv.cue --file config.kv --db runs.db
  parlex scan ./lexers/arith.yaml --input "1+2" --stream --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "text to scan")
	cmd.Flags().StringVar(&opts.File, "file", "", "file to scan")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default in memory)")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "print items as they are emitted")

	return cmd
}

func runScan(opts *ScanOptions, defPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger()

	// --input "" is allowed; it scans empty input.
	if cmd.Flags().Changed("input") == (opts.File != "") {
		_ = formatter.Error(ErrCodeInput, "exactly one of --input or --file is required", nil)
		return NewExitError(ExitCommandError, "exactly one of --input or --file is required")
	}

	def, err := LoadDefinition(defPath)
	if err != nil {
		return formatter.LoadFailure(err)
	}
	formatter.VerboseLog("Loaded definition %s (%d states)", def.Name, len(def.States))

	input := opts.Input
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			_ = formatter.Error(ErrCodeInput, fmt.Sprintf("cannot read input: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to read input", err)
		}
		input = string(data)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	sessOpts := []session.Option{session.WithLogger(logger)}
	if opts.RunIDs != nil {
		sessOpts = append(sessOpts, session.WithRunIDs(opts.RunIDs))
	}
	if opts.Now != nil {
		sessOpts = append(sessOpts, session.WithNow(opts.Now))
	}
	sess := session.New(st, sessOpts...)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var consumer any
	if opts.Stream {
		consumer = newItemPrinter(formatter.Writer, def.ItemTypes, formatter.isJSON())
	}

	out, err := sess.Scan(ctx, def, input, consumer)
	if err != nil {
		var issue lexdef.Issue
		if errors.As(err, &issue) {
			_ = formatter.Error(issue.Code, issue.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid definition", err)
		}
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scan could not be recorded", err)
	}

	result := scanResult(def, out)
	if formatter.isJSON() {
		if err := formatter.Encode(CLIResponse{Status: responseStatus(out.Status), Data: result}); err != nil {
			return err
		}
	} else {
		outputScanText(formatter.Writer, result, !opts.Stream)
	}

	switch out.Status {
	case store.StatusFinished:
		return nil
	case store.StatusSkipped:
		return NewExitError(ExitFailure, "machine not ready")
	case store.StatusCancelled:
		return WrapExitError(ExitFailure, "scan cancelled", out.Err)
	default:
		return WrapExitError(ExitFailure, "scan failed", out.Err)
	}
}

func scanResult(def *lexdef.Definition, out *session.Outcome) ScanResult {
	result := ScanResult{
		RunID:          out.RunID,
		Definition:     def.Name,
		DefinitionHash: out.DefinitionHash,
		Status:         out.Status,
		Ready:          out.Ready,
		Steps:          out.Steps,
		Items:          make([]ScanItem, len(out.Items)),
	}
	for i, it := range out.Items {
		result.Items[i] = ScanItem{Type: it.Type, TypeName: it.TypeName, Value: it.Value, Pos: it.Pos}
	}
	for _, p := range out.Problems {
		result.Problems = append(result.Problems, p.String())
	}
	if out.Err != nil {
		result.Error = out.Err.Error()
	}
	return result
}

func responseStatus(runStatus string) string {
	if runStatus == store.StatusFinished {
		return "ok"
	}
	return "error"
}

func outputScanText(w io.Writer, result ScanResult, withItems bool) {
	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Definition: %s (%s)\n", result.Definition, truncateID(result.DefinitionHash))
	fmt.Fprintf(w, "Status: %s (%d steps)\n", result.Status, result.Steps)

	if len(result.Problems) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Not Ready ===")
		for _, p := range result.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}

	if !withItems {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Items ===")
	if len(result.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
		return
	}
	for _, it := range result.Items {
		fmt.Fprintf(w, "  %s\n", formatItem(it.TypeName, it.Type, it.Value, it.Pos))
	}
}

func formatItem(name string, typ int, value string, pos int) string {
	if name == "" {
		name = fmt.Sprintf("#%d", typ)
	}
	return fmt.Sprintf("%-4d %-10s %q", pos, name, value)
}

// itemPrinter writes items to the output as the machine emits them.
// It implements lexdef.Consumer.
type itemPrinter struct {
	w     io.Writer
	names map[int]string
	json  bool
}

func newItemPrinter(w io.Writer, types map[string]int, asJSON bool) *itemPrinter {
	names := make(map[int]string, len(types))
	for name, t := range types {
		if prev, ok := names[t]; !ok || name < prev {
			names[t] = name
		}
	}
	if _, ok := names[int(machine.ItemError)]; !ok {
		names[int(machine.ItemError)] = "error"
	}
	return &itemPrinter{w: w, names: names, json: asJSON}
}

// Consume implements lexdef.Consumer.
func (p *itemPrinter) Consume(it machine.Item) error {
	name := p.names[int(it.Type)]
	if p.json {
		return json.NewEncoder(p.w).Encode(ScanItem{Type: int(it.Type), TypeName: name, Value: it.Value, Pos: it.Pos})
	}
	_, err := fmt.Fprintln(p.w, formatItem(name, int(it.Type), it.Value, it.Pos))
	return err
}
