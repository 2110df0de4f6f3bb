package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(m *Machine) string { return Stop }

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		reason Reason
	}{
		{"non-empty string", "3+4", ReasonNone},
		{"single byte", "x", ReasonNone},
		{"empty string", "", ReasonEmptyInput},
		{"int", 42, ReasonNotString},
		{"nil", nil, ReasonNotString},
		{"byte slice", []byte("abc"), ReasonNotString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateInput(tt.input)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.reason == ReasonNone, res.OK())
			assert.Equal(t, FieldInput, res.Field)
		})
	}
}

type fakeParser struct{ seen []Item }

func TestValidateParser(t *testing.T) {
	var nilPtr *fakeParser

	tests := []struct {
		name   string
		parser any
		reason Reason
	}{
		{"nil", nil, ReasonNone},
		{"pointer", &fakeParser{}, ReasonNone},
		{"typed nil pointer", nilPtr, ReasonNone},
		{"struct", fakeParser{}, ReasonNone},
		{"map", map[string]int{}, ReasonNone},
		{"slice", []Item{}, ReasonNone},
		{"func", func(Item) {}, ReasonNone},
		{"channel", make(chan Item), ReasonNone},
		{"string", "parser", ReasonPrimitiveParser},
		{"int", 7, ReasonPrimitiveParser},
		{"float", 1.5, ReasonPrimitiveParser},
		{"bool", true, ReasonPrimitiveParser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, ValidateParser(tt.parser).Reason)
		})
	}
}

func TestValidateItemTypes(t *testing.T) {
	tests := []struct {
		name   string
		types  any
		reason Reason
		key    string
		want   map[string]ItemType
	}{
		{"nil", nil, ReasonNilMapping, "", nil},
		{"typed nil map", map[string]ItemType(nil), ReasonNilMapping, "", nil},
		{"slice", []int{1}, ReasonNotMapping, "", nil},
		{"int keys", map[int]int{1: 1}, ReasonNotMapping, "", nil},
		{"empty", map[string]int{}, ReasonNone, "", map[string]ItemType{}},
		{"item types", map[string]ItemType{"NUM": 0, "OP": 1}, ReasonNone, "", map[string]ItemType{"NUM": 0, "OP": 1}},
		{"ints", map[string]int{"A": 1}, ReasonNone, "", map[string]ItemType{"A": 1}},
		{"integral floats", map[string]float64{"A": 2}, ReasonNone, "", map[string]ItemType{"A": 2}},
		{"mixed any", map[string]any{"A": uint8(3), "B": int64(-4)}, ReasonNone, "", map[string]ItemType{"A": 3, "B": -4}},
		{"string value", map[string]any{"A": "not-a-number"}, ReasonNotNumeric, "A", nil},
		{"nil value", map[string]any{"A": nil}, ReasonNotNumeric, "A", nil},
		{"fractional", map[string]float64{"A": 1.5}, ReasonNotNumeric, "A", nil},
		{"error discriminant", map[string]int{"NUM": 0, "NEG": -1}, ReasonReservedType, "NEG", nil},
		{"error discriminant as item type", map[string]ItemType{"NEG": ItemError}, ReasonReservedType, "NEG", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := ValidateItemTypes(tt.types)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.key, res.Key)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateStateFunctions(t *testing.T) {
	tests := []struct {
		name   string
		fns    any
		reason Reason
		key    string
	}{
		{"nil", nil, ReasonNilMapping, ""},
		{"typed nil map", map[string]StateFn(nil), ReasonNilMapping, ""},
		{"not a map", []StateFn{noop}, ReasonNotMapping, ""},
		{"empty", map[string]StateFn{}, ReasonMissingInit, ""},
		{"missing init", map[string]StateFn{"start": noop}, ReasonMissingInit, ""},
		{"init only", map[string]StateFn{"init": noop}, ReasonNone, ""},
		{"plain funcs", map[string]func(*Machine) string{"init": noop}, ReasonNone, ""},
		{"explicit nil", map[string]any{"init": noop, "dead": nil}, ReasonNone, ""},
		{"nil init", map[string]StateFn{"init": nil}, ReasonNone, ""},
		{"string entry", map[string]any{"init": "lexNumber"}, ReasonNotCallable, "init"},
		{"wrong signature", map[string]any{"init": noop, "other": func() {}}, ReasonNotCallable, "other"},
		{"reserved name", map[string]StateFn{"init": noop, "": noop}, ReasonReservedName, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := ValidateStateFunctions(tt.fns)
			assert.Equal(t, tt.reason, res.Reason, res.String())
			assert.Equal(t, tt.key, res.Key)
			if tt.reason == ReasonNone {
				require.NotNil(t, got)
				assert.Contains(t, got, InitState)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestValidateStateFunctions_KeepsNilPlaceholders(t *testing.T) {
	got, res := ValidateStateFunctions(map[string]any{"init": noop, "dead": nil})
	require.True(t, res.OK())

	fn, ok := got["dead"]
	assert.True(t, ok, "nil entries must be kept as placeholders")
	assert.Nil(t, fn)
	assert.NotNil(t, got["init"])
}

func TestValidation_String(t *testing.T) {
	assert.Equal(t, "input: ok", Validation{Field: FieldInput}.String())
	assert.Equal(t,
		`itemTypes["A"]: NOT_NUMERIC: bad`,
		Validation{Field: FieldItemTypes, Reason: ReasonNotNumeric, Key: "A", Detail: "bad"}.String())
	assert.Equal(t,
		"input: EMPTY_INPUT: input must not be empty",
		ValidateInput("").String())
}
