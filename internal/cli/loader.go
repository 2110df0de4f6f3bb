package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/parlex/internal/lexdef"
)

// LoadError represents an error that occurred while loading a definition.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
// Definition check codes (E1xx) and lint codes (W2xx) come from lexdef.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No definition files found
	ErrCodeLoadFailed  = "E004" // Definition decode failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeUnsupported = "E006" // Unknown definition extension
	ErrCodeStore       = "E007" // Run store error
	ErrCodeInput       = "E008" // Input could not be read
)

// definitionExts are the file extensions lexdef.LoadFile understands.
var definitionExts = map[string]bool{".cue": true, ".yaml": true, ".yml": true}

// LoadDefinition reads a lexer definition, converting failures to LoadErrors
// with position info where the decoder provides it.
func LoadDefinition(path string) (*lexdef.Definition, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definition not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definition: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definition is a directory: %s", path)}
	}

	if ext := strings.ToLower(filepath.Ext(path)); !definitionExts[ext] {
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported definition format %q (want .cue, .yaml or .yml)", ext)}
	}

	def, err := lexdef.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err, path)
	}
	return def, nil
}

// FindDefinitionFiles walks the directory and returns all definition file
// paths in lexical order.
func FindDefinitionFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && definitionExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a lexdef error to a LoadError with position info.
func convertCompileError(err error, path string) *LoadError {
	var compileErr *lexdef.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", path, err),
	}
}

// lineOf extracts the line number from a token.Pos.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}
