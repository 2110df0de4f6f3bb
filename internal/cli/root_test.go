package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lexersDir    = "../../testdata/lexers"
	scenariosDir = "../../testdata/scenarios"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "parlex", cmd.Use)
	assert.Contains(t, cmd.Long, "state-function")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, cmdName := range []string{"scan", "validate", "trace", "test", "replay"} {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestScanCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	scanCmd, _, err := cmd.Find([]string{"scan"})
	require.NoError(t, err)

	for _, name := range []string{"input", "file", "db", "stream"} {
		assert.NotNil(t, scanCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", lexersDir, "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestNewLogger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}

	newLogger(buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(buf, true).Debug("shown", "k", "v")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "k=v")
}

func TestRootOptions_LoggerFallback(t *testing.T) {
	opts := &RootOptions{}
	assert.NotNil(t, opts.logger())
}
