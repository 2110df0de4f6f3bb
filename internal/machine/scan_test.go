package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputOnly(t *testing.T, input string) *Machine {
	t.Helper()
	m := New(Config{Input: input}, quiet())
	require.Equal(t, input, m.Input())
	return m
}

func TestScan_NextAndBackup(t *testing.T) {
	m := inputOnly(t, "héllo")

	assert.Equal(t, 'h', m.Next())
	assert.Equal(t, 1, m.Width)
	assert.Equal(t, 1, m.Cursor)

	assert.Equal(t, 'é', m.Next())
	assert.Equal(t, 2, m.Width, "width is measured in bytes")
	assert.Equal(t, 3, m.Cursor)

	m.Backup()
	assert.Equal(t, 1, m.Cursor)
	assert.Equal(t, 0, m.Width)

	// A second Backup without Next is a no-op
	m.Backup()
	assert.Equal(t, 1, m.Cursor)
}

func TestScan_Peek(t *testing.T) {
	m := inputOnly(t, "ab")

	assert.Equal(t, 'a', m.Peek())
	assert.Equal(t, 0, m.Cursor)
	assert.Equal(t, 'a', m.Next())
	assert.Equal(t, 'b', m.Peek())
	assert.Equal(t, 1, m.Cursor)
}

func TestScan_EOF(t *testing.T) {
	m := inputOnly(t, "a")

	assert.False(t, m.AtEOF())
	m.Next()
	assert.True(t, m.AtEOF())
	assert.Equal(t, EOF, m.Next())
	assert.Equal(t, 0, m.Width)
	assert.Equal(t, EOF, m.Peek())
	assert.Equal(t, 1, m.Cursor)
}

func TestScan_AcceptAndAcceptRun(t *testing.T) {
	m := inputOnly(t, "123abc")

	assert.False(t, m.Accept("abc"))
	assert.Equal(t, 0, m.Cursor)

	assert.True(t, m.Accept(digits))
	assert.Equal(t, 2, m.AcceptRun(digits))
	assert.Equal(t, 3, m.Cursor)
	assert.Equal(t, "123", m.Pending())

	assert.Equal(t, 0, m.AcceptRun(digits))
	assert.Equal(t, 3, m.AcceptRun("abc"))
	assert.False(t, m.Accept("abc"), "nothing to accept at EOF")
	assert.Equal(t, 6, m.Cursor)
}

func TestScan_EmitAndIgnore(t *testing.T) {
	m := inputOnly(t, "ab  cd")

	m.AcceptRun("abcd")
	first := m.Emit(1)
	assert.Equal(t, Item{Type: 1, Value: "ab", Pos: 0}, first)
	assert.Equal(t, 2, m.Start)

	m.AcceptRun(" ")
	m.Ignore()
	assert.Equal(t, 4, m.Start)
	assert.Equal(t, "", m.Pending())

	m.AcceptRun("abcd")
	m.Emit(2)

	assert.Equal(t, []Item{
		{Type: 1, Value: "ab", Pos: 0},
		{Type: 2, Value: "cd", Pos: 4},
	}, m.Items)
}

func TestScan_EmitNamed(t *testing.T) {
	m := New(Config{
		Input:     "x1",
		ItemTypes: map[string]ItemType{"ID": 7},
	}, quiet())

	m.Next()
	it, ok := m.EmitNamed("ID")
	require.True(t, ok)
	assert.Equal(t, Item{Type: 7, Value: "x", Pos: 0}, it)

	m.Next()
	_, ok = m.EmitNamed("NUM")
	assert.False(t, ok)
	assert.Len(t, m.Items, 1, "unknown names emit nothing")
	assert.Equal(t, "1", m.Pending())

	typ, ok := m.TypeOf("ID")
	assert.True(t, ok)
	assert.Equal(t, ItemType(7), typ)
}

func TestScan_Errorf(t *testing.T) {
	m := inputOnly(t, "abc")
	m.Next()
	m.Ignore()

	next := m.Errorf("unexpected %q", 'b')
	assert.Equal(t, Stop, next)
	require.Len(t, m.Items, 1)
	assert.Equal(t, Item{Type: ItemError, Value: `unexpected 'b'`, Pos: 1}, m.Items[0])
}

func TestScan_PendingOutOfRange(t *testing.T) {
	m := inputOnly(t, "abc")
	m.Start = 2
	m.Cursor = 1
	assert.Equal(t, "", m.Pending())
}
