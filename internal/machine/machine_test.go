package machine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const digits = "0123456789"

// quiet suppresses machine logs in tests.
func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// arithConfig is the "3+4" lexer: a digit, a plus sign, a digit.
func arithConfig(input string) Config {
	return Config{
		Input:     input,
		ItemTypes: map[string]ItemType{"NUM": 0, "OP": 1},
		StateFunctions: map[string]StateFn{
			"init": func(m *Machine) string {
				if !m.Accept(digits) {
					return m.Errorf("expected digit")
				}
				m.EmitNamed("NUM")
				return "op"
			},
			"op": func(m *Machine) string {
				if !m.Accept("+") {
					return m.Errorf("expected '+'")
				}
				m.Ignore()
				return "number"
			},
			"number": func(m *Machine) string {
				if !m.Accept(digits) {
					return m.Errorf("expected digit")
				}
				m.EmitNamed("NUM")
				return Stop
			},
		},
	}
}

func TestMachine_New(t *testing.T) {
	m := New(arithConfig("3+4"), quiet())

	require.NotNil(t, m)
	assert.True(t, m.Ready())
	assert.Equal(t, "3+4", m.Input())
	assert.Nil(t, m.Parser())
	assert.Len(t, m.StateFunctions(), 3)
	assert.Equal(t, map[string]ItemType{"NUM": 0, "OP": 1}, m.ItemTypes())
	assert.Empty(t, m.Items)
	assert.Equal(t, 0, m.Cursor)
}

func TestMachine_Run_ArithmeticInput(t *testing.T) {
	m := New(arithConfig("3+4"), quiet())

	var visited []string
	m.OnBeforeAny(func(ev StateEvent) { visited = append(visited, ev.StateName) })

	require.NoError(t, m.Run())

	assert.Equal(t, []Item{
		{Type: 0, Value: "3", Pos: 0},
		{Type: 0, Value: "4", Pos: 2},
	}, m.Items)
	assert.Equal(t, []string{"init", "op", "number"}, visited)
	assert.Equal(t, 3, m.Steps())
	assert.Equal(t, "number", m.CurrentState())
	assert.Equal(t, 3, m.Cursor)
}

func TestMachine_Run_InitReceivesMachineFirst(t *testing.T) {
	var calls []string
	var got *Machine

	m := New(Config{
		Input: "abc",
		StateFunctions: map[string]StateFn{
			"init": func(m *Machine) string {
				calls = append(calls, "init")
				got = m
				return "second"
			},
			"second": func(m *Machine) string {
				calls = append(calls, "second")
				return Stop
			},
		},
	}, quiet())

	require.NoError(t, m.Run())
	assert.Same(t, m, got)
	assert.Equal(t, []string{"init", "second"}, calls)
}

func TestMachine_Run_MissingInitIsNoOp(t *testing.T) {
	called := false
	m := New(Config{
		Input: "abc",
		StateFunctions: map[string]StateFn{
			"start": func(m *Machine) string {
				called = true
				m.Next()
				return m.Errorf("should not run")
			},
		},
	}, quiet())

	assert.False(t, m.Ready())
	require.NoError(t, m.Run())

	assert.False(t, called)
	assert.Empty(t, m.Items)
	assert.Equal(t, 0, m.Cursor)
	assert.Equal(t, 0, m.Steps())

	problems := m.Diagnose()
	require.Len(t, problems, 1)
	assert.Equal(t, FieldStateFunctions, problems[0].Field)
	assert.Equal(t, ReasonNilMapping, problems[0].Reason, "rejected table is never stored")

	rej, ok := m.LastRejection()
	require.True(t, ok)
	assert.Equal(t, ReasonMissingInit, rej.Reason)
}

func TestMachine_Run_EmptyInputIsNoOp(t *testing.T) {
	m := New(Config{
		Input:          "",
		StateFunctions: map[string]StateFn{"init": noop},
	}, quiet())

	assert.False(t, m.Ready())
	require.NoError(t, m.Run())
	assert.Empty(t, m.Items)
	assert.Equal(t, 0, m.Steps())

	problems := m.Diagnose()
	require.Len(t, problems, 1)
	assert.Equal(t, ReasonEmptyInput, problems[0].Reason)
}

func TestMachine_Run_UnknownStateIsFatal(t *testing.T) {
	m := New(Config{
		Input:     "xyz",
		ItemTypes: map[string]ItemType{"CHAR": 3},
		StateFunctions: map[string]StateFn{
			"init": func(m *Machine) string {
				m.Next()
				m.EmitNamed("CHAR")
				return "nowhere"
			},
		},
	}, quiet())

	err := m.Run()
	require.Error(t, err)
	assert.True(t, IsUnknownState(err))

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "nowhere", de.State)
	assert.Equal(t, "init", de.From)
	assert.Equal(t, 2, de.Step)

	// Partial items survive the failure
	assert.Equal(t, []Item{{Type: 3, Value: "x", Pos: 0}}, m.Items)
	assert.Equal(t, 1, m.Steps())
}

func TestMachine_Run_NullStateIsFatal(t *testing.T) {
	m := New(Config{
		Input: "xyz",
		StateFunctions: map[string]StateFn{
			"init": func(m *Machine) string { return "dead" },
			"dead": nil,
		},
	}, quiet())

	require.True(t, m.Ready())
	err := m.Run()
	assert.True(t, IsNullState(err))
}

func TestMachine_Run_NullInitIsFatal(t *testing.T) {
	m := New(Config{
		Input:          "xyz",
		StateFunctions: map[string]StateFn{"init": nil},
	}, quiet())

	require.True(t, m.Ready())
	err := m.Run()

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeNullState, de.Code)
	assert.Equal(t, 1, de.Step)
	assert.Equal(t, "", de.From)
}

func TestMachine_Run_ContextCancelled(t *testing.T) {
	m := New(arithConfig("3+4"), quiet())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RunContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Steps())
	assert.Empty(t, m.Items)
}

func TestMachine_Run_ContextCancelledBetweenStates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(arithConfig("3+4"), quiet())
	m.OnAfter("op", func(StateEvent) { cancel() })

	err := m.RunContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, m.Steps())
	assert.Len(t, m.Items, 1)
}

func TestMachine_ItemTypesAbsentIsReady(t *testing.T) {
	m := New(Config{
		Input:          "a",
		StateFunctions: map[string]StateFn{"init": noop},
	}, quiet())

	assert.True(t, m.Ready())
	assert.Nil(t, m.ItemTypes())
}

func TestMachine_PrimitiveParserNotReady(t *testing.T) {
	m := New(Config{
		Input:          "a",
		Parser:         "not an object",
		StateFunctions: map[string]StateFn{"init": noop},
	}, quiet())

	assert.False(t, m.Ready())
	rej, ok := m.LastRejection()
	require.True(t, ok)
	assert.Equal(t, ReasonPrimitiveParser, rej.Reason)
}

func TestMachine_ParserIsPassedThrough(t *testing.T) {
	p := &fakeParser{}
	m := New(Config{
		Input:  "ab",
		Parser: p,
		StateFunctions: map[string]StateFn{
			"init": func(m *Machine) string {
				for m.Next() != EOF {
					m.Parser().(*fakeParser).seen = append(m.Parser().(*fakeParser).seen, m.Emit(0))
				}
				return Stop
			},
		},
	}, quiet())

	require.NoError(t, m.Run())
	assert.Equal(t, m.Items, p.seen)
	assert.Len(t, p.seen, 2)
}

func TestMachine_Set(t *testing.T) {
	m := New(Config{}, quiet())
	assert.False(t, m.Ready())

	assert.True(t, m.Set(FieldInput, "3+4"))
	assert.False(t, m.Ready())
	assert.True(t, m.Set(FieldStateFunctions, map[string]StateFn{"init": noop}))
	assert.True(t, m.Ready(), "item types and parser are optional")
	assert.True(t, m.Set(FieldParser, &fakeParser{}))
	assert.True(t, m.Set(FieldItemTypes, map[string]int{"NUM": 0}))
	assert.True(t, m.Ready())

	assert.False(t, m.Set("colour", "blue"))
	assert.True(t, m.Ready())
}

func TestMachine_SetItemTypes_RejectKeepsPrevious(t *testing.T) {
	m := New(Config{}, quiet())

	assert.False(t, m.Set(FieldItemTypes, map[string]any{"A": "not-a-number"}))
	assert.Nil(t, m.ItemTypes())

	assert.True(t, m.Set(FieldItemTypes, map[string]any{"A": 1}))
	assert.Equal(t, map[string]ItemType{"A": 1}, m.ItemTypes())

	assert.False(t, m.SetItemTypes(map[string]any{"A": 1, "B": "x"}))
	assert.Equal(t, map[string]ItemType{"A": 1}, m.ItemTypes())

	assert.False(t, m.SetItemTypes(nil))
	assert.Equal(t, map[string]ItemType{"A": 1}, m.ItemTypes())
}

func TestMachine_FailedSetDoesNotCorruptOtherFields(t *testing.T) {
	m := New(arithConfig("3+4"), quiet())
	require.True(t, m.Ready())

	assert.False(t, m.SetInput(""))
	assert.False(t, m.SetStateFunctions(map[string]StateFn{"start": noop}))
	assert.False(t, m.SetParser(12))

	assert.True(t, m.Ready())
	assert.Equal(t, "3+4", m.Input())
	assert.Contains(t, m.StateFunctions(), "init")
}

func TestMachine_SetWhileRunningIsRefused(t *testing.T) {
	var setOK bool
	m := New(Config{
		Input: "abc",
		StateFunctions: map[string]StateFn{
			"init": func(m *Machine) string {
				setOK = m.SetInput("other")
				return Stop
			},
		},
	}, quiet())

	require.NoError(t, m.Run())
	assert.False(t, setOK)
	assert.Equal(t, "abc", m.Input())

	rej, ok := m.LastRejection()
	require.True(t, ok)
	assert.Equal(t, ReasonRunning, rej.Reason)

	// Idle again after the run
	assert.True(t, m.SetInput("other"))
}

func TestMachine_StartupWhileRunningIsRefused(t *testing.T) {
	var inputDuringRun string
	var rej Validation
	var rejected bool

	m := New(Config{
		Input:     "abc",
		ItemTypes: map[string]ItemType{"CHAR": 0},
		StateFunctions: map[string]StateFn{
			"init": func(m *Machine) string {
				m.Next()
				m.EmitNamed("CHAR")
				m.Startup()
				inputDuringRun = m.Input()
				rej, rejected = m.LastRejection()
				return "tail"
			},
			"tail": func(m *Machine) string { return Stop },
		},
	}, quiet())

	require.NoError(t, m.Run())

	assert.Equal(t, "abc", inputDuringRun)
	require.True(t, rejected)
	assert.Equal(t, FieldStartup, rej.Field)
	assert.Equal(t, ReasonRunning, rej.Reason)

	assert.Equal(t, []Item{{Type: 0, Value: "a", Pos: 0}}, m.Items)
	assert.Equal(t, 2, m.Steps())
	assert.True(t, m.Ready())

	// Idle again after the run
	m.Startup()
	assert.Empty(t, m.Items)
	_, rejected = m.LastRejection()
	assert.False(t, rejected)
}

func TestMachine_Startup_Idempotent(t *testing.T) {
	m := New(arithConfig("3+4"), quiet())
	require.NoError(t, m.Run())
	require.Len(t, m.Items, 2)

	m.Startup()
	first := m.Ready()
	assert.Empty(t, m.Items)
	assert.Equal(t, 0, m.Cursor)
	assert.Equal(t, 0, m.Steps())

	m.Startup()
	assert.Equal(t, first, m.Ready())
	assert.Empty(t, m.Items)
}

func TestMachine_Startup_ReplaysConfiguration(t *testing.T) {
	m := New(arithConfig("3+4"), quiet())
	require.True(t, m.SetInput("5+6"))

	m.Startup()
	assert.Equal(t, "3+4", m.Input(), "startup restores the constructed configuration")

	_, rejectedBefore := m.LastRejection()
	assert.False(t, rejectedBefore)
}

func TestMachine_Startup_NotReadyStaysNotReady(t *testing.T) {
	m := New(Config{Input: "abc"}, quiet())
	assert.False(t, m.Ready())
	m.Startup()
	assert.False(t, m.Ready())
	m.Startup()
	assert.False(t, m.Ready())
}
