package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

// tempScenario writes a scenario for the arithmetic lexer into a fresh
// directory and returns the directory.
func tempScenario(t *testing.T, name, input string) string {
	t.Helper()
	dir := t.TempDir()

	definition, err := filepath.Abs(filepath.Join(lexersDir, "arith.yaml"))
	require.NoError(t, err)

	content := fmt.Sprintf(`name: %s
description: temporary arithmetic scenario
definition: %s
input: %q
run_id: run-%s
expect:
  status: finished
`, name, definition, input, name)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0644))
	return dir
}

func TestTest_RepoScenariosPass(t *testing.T) {
	out, err := execute(t, "test", scenariosDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ arith_sum")
	assert.Contains(t, out, "✓ broken_jump")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_FilterJSON(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "arith*", "--format", "json")
	require.NoError(t, err)

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, sc := range resp.Data.Scenarios {
		assert.True(t, sc.Pass, sc.Name)
	}
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	dir := tempScenario(t, "sum", "1+2")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ sum (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "sum.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"run_id":"run-sum"`)
	assert.Contains(t, string(golden), `"scenario_name":"sum"`)

	// The freshly written golden file now matches
	out, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ sum\n")
}

func TestTest_NoGoldenIsAssertionsOnly(t *testing.T) {
	dir := tempScenario(t, "sum", "1+2")

	_, err := execute(t, "test", dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "golden"))
	assert.True(t, os.IsNotExist(err), "checking never writes golden files")
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := tempScenario(t, "sum", "1+2")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "sum.golden"), []byte("{}"), 0644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ sum")
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestTest_FailingExpectationJSON(t *testing.T) {
	dir := tempScenario(t, "bad", "1+")
	path := filepath.Join(dir, "bad.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, []byte("  steps: 99\n")...), 0644))

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors, "expected 99 steps, got 3")
}

func TestTest_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yaml"), []byte("name: empty\n"), 0644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
