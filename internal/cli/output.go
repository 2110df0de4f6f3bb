package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run failed, scenario failed, or machine not ready
	ExitCommandError = 2 // Bad definition, missing file, unreadable database
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure for errors that are not ExitErrors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON envelope for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E101", ...
	Message string `json:"message"`           // human-readable message
	Line    int    `json:"line,omitempty"`    // definition line, when known
	Details any    `json:"details,omitempty"` // additional context
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostic output; defaults to Writer
	Verbose   bool
}

func (f *OutputFormatter) isJSON() bool {
	return f.Format == "json"
}

// Encode writes resp as indented JSON.
func (f *OutputFormatter) Encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success outputs a successful result in the configured format.
// Text output prints data with %v; commands with richer text output
// write it themselves.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// LoadFailure reports a LoadError and returns the matching ExitError.
func (f *OutputFormatter) LoadFailure(err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	if f.isJSON() {
		_ = f.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: loadErr.Code, Message: loadErr.Message, Line: lineOf(loadErr.Pos)},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", loadErr.Code, loadErr.Message)
		if line := lineOf(loadErr.Pos); line > 0 {
			fmt.Fprintf(f.Writer, "  at %s:%d:%d\n", loadErr.Pos.Filename(), line, loadErr.Pos.Column())
		}
	}
	return WrapExitError(ExitCommandError, "failed to load definition", loadErr)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// It writes to ErrWriter so JSON output on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
