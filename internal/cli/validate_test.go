package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validateResponse struct {
	Status string           `json:"status"`
	Data   ValidationResult `json:"data"`
	Error  *CLIError        `json:"error"`
}

func writeDefinition(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate_ValidFile(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(lexersDir, "kv.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ ../../testdata/lexers/kv.yaml (kv)")
	assert.Contains(t, out, "✓ All definitions valid")
}

func TestValidate_DirectoryWithWarnings(t *testing.T) {
	out, err := execute(t, "validate", lexersDir, "--format", "json")
	require.NoError(t, err, "warnings do not fail validation")

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 4)

	byName := map[string]FileValidation{}
	for _, fv := range resp.Data.Files {
		byName[filepath.Base(fv.Path)] = fv
	}

	broken := byName["broken.yaml"]
	require.NotEmpty(t, broken.Warnings)
	assert.Equal(t, "W202", broken.Warnings[0].Code)

	// Both renditions of the arithmetic lexer hash the same
	assert.NotEmpty(t, byName["arith.cue"].Hash)
	assert.Equal(t, byName["arith.cue"].Hash, byName["arith.yaml"].Hash)
}

func TestValidate_TextWarnings(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(lexersDir, "broken.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "warning W202")
}

func TestValidate_CheckErrors(t *testing.T) {
	path := writeDefinition(t, "bad.yaml", `
item_types:
  WORD: 0
states:
  init:
    rules:
      - accept: "a"
        literal: "b"
        emit: LETTER
`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Contains(t, out, "E103")
	assert.Contains(t, out, "E104")
	assert.Contains(t, out, "✗ Validation failed")
}

func TestValidate_CheckErrorsJSON(t *testing.T) {
	path := writeDefinition(t, "bad.yaml", `
states:
  "":
    rules: []
`)

	out, err := execute(t, "validate", path, "--format", "json")
	require.Error(t, err)

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E102", resp.Error.Code)
}

func TestValidate_LoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", "/nonexistent/lexer.yaml", ErrCodeNotFound},
		{"unknown field", writeDefinition(t, "typo.yaml", "statez: {}\n"), ErrCodeLoadFailed},
		{"cue syntax", writeDefinition(t, "broken.cue", "states: {\n"), ErrCodeLoadFailed},
		{"unsupported", writeDefinition(t, "lexer.json", "{}"), ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", tt.path, "--format", "json")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp validateResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestValidate_CUEErrorHasLine(t *testing.T) {
	path := writeDefinition(t, "lexer.cue", "name: \"x\"\nstates: {\n\tinit: {\n\t\trules: [{accept: 1}]\n\t}\n}\n")

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "line 4")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	_, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no definition files")
}
