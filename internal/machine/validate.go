package machine

import (
	"fmt"
	"math"
	"reflect"
)

// Field names accepted by Machine.Set.
const (
	FieldInput          = "input"
	FieldParser         = "parser"
	FieldItemTypes      = "itemTypes"
	FieldStateFunctions = "stateFunctions"
)

// FieldStartup labels rejections of Startup itself. It is not a Set field.
const FieldStartup = "startup"

// Reason categorizes why a configuration value was rejected.
type Reason string

const (
	// ReasonNone marks an accepted value.
	ReasonNone Reason = ""

	// ReasonNotString indicates the input is not a string.
	ReasonNotString Reason = "NOT_STRING"

	// ReasonEmptyInput indicates the input is the empty string.
	ReasonEmptyInput Reason = "EMPTY_INPUT"

	// ReasonPrimitiveParser indicates the parser is a bool, number or string.
	ReasonPrimitiveParser Reason = "PRIMITIVE_PARSER"

	// ReasonNilMapping indicates a required mapping is absent.
	ReasonNilMapping Reason = "NIL_MAPPING"

	// ReasonNotMapping indicates the value is not a string-keyed mapping.
	ReasonNotMapping Reason = "NOT_MAPPING"

	// ReasonNotNumeric indicates an item type value is not an integral number.
	ReasonNotNumeric Reason = "NOT_NUMERIC"

	// ReasonNotCallable indicates a state table entry is neither a state function nor nil.
	ReasonNotCallable Reason = "NOT_CALLABLE"

	// ReasonReservedName indicates a state is named after the Stop signal.
	ReasonReservedName Reason = "RESERVED_NAME"

	// ReasonReservedType indicates an item type uses the ItemError discriminant.
	ReasonReservedType Reason = "RESERVED_TYPE"

	// ReasonMissingInit indicates the state table has no "init" entry.
	ReasonMissingInit Reason = "MISSING_INIT"

	// ReasonRunning indicates a set was attempted while a run is in progress.
	ReasonRunning Reason = "MACHINE_RUNNING"
)

// Validation is the outcome of validating one configuration field.
// The zero Reason means the value was accepted.
type Validation struct {
	Field  string
	Reason Reason
	Key    string // offending mapping key, if any
	Detail string
}

// OK reports whether the value was accepted.
func (v Validation) OK() bool {
	return v.Reason == ReasonNone
}

func (v Validation) String() string {
	if v.OK() {
		return v.Field + ": ok"
	}
	if v.Key != "" {
		return fmt.Sprintf("%s[%q]: %s: %s", v.Field, v.Key, v.Reason, v.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", v.Field, v.Reason, v.Detail)
}

func accepted(field string) Validation {
	return Validation{Field: field}
}

func rejected(field string, reason Reason, key, format string, args ...any) Validation {
	return Validation{
		Field:  field,
		Reason: reason,
		Key:    key,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ValidateInput accepts non-empty strings.
func ValidateInput(v any) Validation {
	s, ok := v.(string)
	if !ok {
		return rejected(FieldInput, ReasonNotString, "", "input must be a string, got %T", v)
	}
	if len(s) == 0 {
		return rejected(FieldInput, ReasonEmptyInput, "", "input must not be empty")
	}
	return accepted(FieldInput)
}

// ValidateParser accepts nil and any value that is not a primitive.
// The parser's shape is never inspected beyond its kind.
func ValidateParser(v any) Validation {
	if v == nil {
		return accepted(FieldParser)
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return rejected(FieldParser, ReasonPrimitiveParser, "", "parser must be object-shaped, got %T", v)
	}
	return accepted(FieldParser)
}

// ValidateItemTypes accepts a non-nil string-keyed mapping whose values are
// all integral numbers, and returns it converted to ItemType values.
func ValidateItemTypes(v any) (map[string]ItemType, Validation) {
	if v == nil {
		return nil, rejected(FieldItemTypes, ReasonNilMapping, "", "item types must not be nil")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, rejected(FieldItemTypes, ReasonNotMapping, "", "item types must be a string-keyed map, got %T", v)
	}
	if rv.IsNil() {
		return nil, rejected(FieldItemTypes, ReasonNilMapping, "", "item types must not be nil")
	}

	out := make(map[string]ItemType, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		typ, ok := toItemType(iter.Value())
		if !ok {
			return nil, rejected(FieldItemTypes, ReasonNotNumeric, key, "value %v is not an integral number", iter.Value())
		}
		if typ == ItemError {
			return nil, rejected(FieldItemTypes, ReasonReservedType, key, "value %d is reserved for error items", ItemError)
		}
		out[key] = typ
	}
	return out, accepted(FieldItemTypes)
}

// maxExactInt bounds discriminants to integers a float64 represents exactly.
const maxExactInt = 1 << 53

// toItemType converts a numeric reflect.Value, unwrapping interfaces.
func toItemType(rv reflect.Value) (ItemType, bool) {
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ItemType(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > maxExactInt {
			return 0, false
		}
		return ItemType(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.Abs(f) > maxExactInt {
			return 0, false
		}
		return ItemType(f), true
	}
	return 0, false
}

var stateFnType = reflect.TypeOf(StateFn(nil))

// ValidateStateFunctions accepts a non-nil string-keyed mapping whose values
// are state functions or explicit nil placeholders, and which contains
// InitState. It returns the table converted to StateFn values.
func ValidateStateFunctions(v any) (map[string]StateFn, Validation) {
	if v == nil {
		return nil, rejected(FieldStateFunctions, ReasonNilMapping, "", "state functions must not be nil")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, rejected(FieldStateFunctions, ReasonNotMapping, "", "state functions must be a string-keyed map, got %T", v)
	}
	if rv.IsNil() {
		return nil, rejected(FieldStateFunctions, ReasonNilMapping, "", "state functions must not be nil")
	}

	out := make(map[string]StateFn, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		name := iter.Key().String()
		if name == Stop {
			return nil, rejected(FieldStateFunctions, ReasonReservedName, name, "the empty name is the stop signal")
		}
		fn, ok := toStateFn(iter.Value())
		if !ok {
			return nil, rejected(FieldStateFunctions, ReasonNotCallable, name, "%T is not a state function", iter.Value().Interface())
		}
		out[name] = fn
	}

	if _, ok := out[InitState]; !ok {
		return nil, rejected(FieldStateFunctions, ReasonMissingInit, "", "state %q is required", InitState)
	}
	return out, accepted(FieldStateFunctions)
}

// toStateFn converts a table entry. A nil entry converts to a nil StateFn.
func toStateFn(rv reflect.Value) (StateFn, bool) {
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Func || !rv.Type().ConvertibleTo(stateFnType) {
		return nil, false
	}
	if rv.IsNil() {
		return nil, true
	}
	return rv.Convert(stateFnType).Interface().(StateFn), true
}
