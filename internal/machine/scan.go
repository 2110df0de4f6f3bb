package machine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// EOF is returned by Next and Peek at the end of the input.
const EOF rune = -1

// Next reads the rune at the cursor and advances past it.
// Width records its size so Backup can undo exactly one read.
func (m *Machine) Next() rune {
	if m.Cursor >= len(m.input) {
		m.Width = 0
		return EOF
	}
	r, w := utf8.DecodeRuneInString(m.input[m.Cursor:])
	m.Width = w
	m.Cursor += w
	return r
}

// Backup steps back over the last rune read by Next.
// It can be called only once per call of Next.
func (m *Machine) Backup() {
	m.Cursor -= m.Width
	m.Width = 0
}

// Peek returns the next rune without consuming it.
func (m *Machine) Peek() rune {
	r := m.Next()
	m.Backup()
	return r
}

// Accept consumes the next rune if it is in valid.
func (m *Machine) Accept(valid string) bool {
	r := m.Next()
	if r != EOF && strings.ContainsRune(valid, r) {
		return true
	}
	m.Backup()
	return false
}

// AcceptRun consumes a run of runes from valid and returns how many it read.
func (m *Machine) AcceptRun(valid string) int {
	n := 0
	for m.Accept(valid) {
		n++
	}
	return n
}

// AtEOF reports whether the cursor is at the end of the input.
func (m *Machine) AtEOF() bool {
	return m.Cursor >= len(m.input)
}

// Pending returns the text between Start and Cursor.
func (m *Machine) Pending() string {
	if m.Start > m.Cursor || m.Cursor > len(m.input) {
		return ""
	}
	return m.input[m.Start:m.Cursor]
}

// Ignore skips over the pending input.
func (m *Machine) Ignore() {
	m.Start = m.Cursor
}

// Emit appends the pending input as an item of type t and moves Start to the cursor.
func (m *Machine) Emit(t ItemType) Item {
	it := Item{Type: t, Value: m.Pending(), Pos: m.Start}
	m.Items = append(m.Items, it)
	m.Start = m.Cursor
	return it
}

// TypeOf looks up an item type by name.
func (m *Machine) TypeOf(name string) (ItemType, bool) {
	t, ok := m.itemTypes[name]
	return t, ok
}

// EmitNamed emits the pending input tagged with the named item type.
// It emits nothing and returns false if the name is not in the item type table.
func (m *Machine) EmitNamed(name string) (Item, bool) {
	t, ok := m.TypeOf(name)
	if !ok {
		return Item{}, false
	}
	return m.Emit(t), true
}

// Errorf appends an ItemError item carrying the formatted message and
// returns Stop, so a state function can end the run with
//
//	return m.Errorf("unexpected %q", r)
func (m *Machine) Errorf(format string, args ...any) string {
	m.Items = append(m.Items, Item{
		Type:  ItemError,
		Value: fmt.Sprintf(format, args...),
		Pos:   m.Start,
	})
	return Stop
}
