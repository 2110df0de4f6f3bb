package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/parlex/internal/lexdef"
)

// FileValidation holds the findings for one definition file.
type FileValidation struct {
	Path     string         `json:"path"`
	Name     string         `json:"name,omitempty"`
	Hash     string         `json:"hash,omitempty"`
	Errors   []lexdef.Issue `json:"errors,omitempty"`
	Warnings []lexdef.Issue `json:"warnings,omitempty"`
	Load     *CLIError      `json:"load_error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition|dir>",
		Short: "Check lexer definitions without scanning",
		Long: `Load lexer definitions and check them without running them.

Errors (E1xx) make a definition uncompilable. Warnings (W2xx) flag
definitions that compile but will misbehave, such as a missing init
state or a next naming an undeclared state.

Given a directory, every .cue, .yaml and .yml file in it is validated.

Exit codes:
  0 - All definitions valid (warnings allowed)
  2 - A definition failed to load or has errors`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files := []string{path}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, err := FindDefinitionFiles(path)
		if err != nil {
			return formatter.LoadFailure(&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)})
		}
		if len(found) == 0 {
			return formatter.LoadFailure(&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no definition files found in %s", path)})
		}
		files = found
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		fv := validateFile(file)
		if fv.Load != nil || len(fv.Errors) > 0 {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.isJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = firstValidationError(result)
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitCommandError, "validation failed")
	}
	return nil
}

// validateFile loads, checks and lints one definition.
func validateFile(path string) FileValidation {
	fv := FileValidation{Path: path}

	def, err := LoadDefinition(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		fv.Load = &CLIError{Code: loadErr.Code, Message: loadErr.Message, Line: lineOf(loadErr.Pos)}
		return fv
	}
	fv.Name = def.Name

	fv.Errors = lexdef.Check(def)
	fv.Warnings = lexdef.Lint(def)
	if len(fv.Errors) == 0 {
		if hash, err := lexdef.Hash(def); err == nil {
			fv.Hash = hash
		}
	}
	return fv
}

func firstValidationError(result ValidationResult) *CLIError {
	for _, fv := range result.Files {
		if fv.Load != nil {
			return fv.Load
		}
		if len(fv.Errors) > 0 {
			return &CLIError{Code: fv.Errors[0].Code, Message: fv.Errors[0].Error()}
		}
	}
	return nil
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) {
	w := formatter.Writer

	for _, fv := range result.Files {
		switch {
		case fv.Load != nil:
			fmt.Fprintf(w, "✗ %s\n", fv.Path)
			if fv.Load.Line > 0 {
				fmt.Fprintf(w, "  line %d\n", fv.Load.Line)
			}
			fmt.Fprintf(w, "  %s: %s\n", fv.Load.Code, fv.Load.Message)
			continue
		case len(fv.Errors) > 0:
			fmt.Fprintf(w, "✗ %s (%s)\n", fv.Path, fv.Name)
		default:
			fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Name)
			if formatter.Verbose {
				fmt.Fprintf(w, "  hash: %s\n", fv.Hash)
			}
		}

		for _, issue := range fv.Errors {
			fmt.Fprintf(w, "  %s: %s: %s\n", issue.Code, issue.Field, issue.Message)
		}
		for _, issue := range fv.Warnings {
			fmt.Fprintf(w, "  warning %s: %s: %s\n", issue.Code, issue.Field, issue.Message)
		}
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ All definitions valid")
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}
}
