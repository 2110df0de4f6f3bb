package lexdef

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// LoadCUE decodes a definition from CUE source. filename is used for error
// positions only.
//
// The expected shape is:
//
//	name: "arith"
//	item_types: {NUM: 0, OP: 1}
//	states: {
//		init: rules: [{accept_run: "0123456789", emit: "NUM", next: "op"}]
//		dead: null
//	}
func LoadCUE(data []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return decodeCUE(v)
}

func decodeCUE(v cue.Value) (*Definition, error) {
	def := &Definition{}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		field := iter.Value()

		switch label {
		case "name":
			if def.Name, err = cueString(field, "name"); err != nil {
				return nil, err
			}
		case "item_types":
			if def.ItemTypes, err = decodeCUEItemTypes(field); err != nil {
				return nil, err
			}
		case "states":
			if def.States, err = decodeCUEStates(field); err != nil {
				return nil, err
			}
		default:
			return nil, unknownField(field, "definition", label)
		}
	}

	if def.States == nil {
		return nil, &CompileError{Field: "states", Message: "states is required", Pos: v.Pos()}
	}
	return def, nil
}

func decodeCUEItemTypes(v cue.Value) (map[string]int, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	types := make(map[string]int)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		n, err := iter.Value().Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   "item_types." + name,
				Message: "must be an integer",
				Pos:     iter.Value().Pos(),
			}
		}
		types[name] = int(n)
	}
	return types, nil
}

func decodeCUEStates(v cue.Value) (map[string]*StateDef, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	states := make(map[string]*StateDef)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		if iter.Value().IsNull() {
			states[name] = nil
			continue
		}
		st, err := decodeCUEState(iter.Value(), "states."+name)
		if err != nil {
			return nil, err
		}
		states[name] = st
	}
	return states, nil
}

func decodeCUEState(v cue.Value, path string) (*StateDef, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	st := &StateDef{}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		field := iter.Value()

		switch label {
		case "description":
			if st.Description, err = cueString(field, path+".description"); err != nil {
				return nil, err
			}
		case "rules":
			list, err := field.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for i := 0; list.Next(); i++ {
				rule, err := decodeCUERule(list.Value(), fmt.Sprintf("%s.rules[%d]", path, i))
				if err != nil {
					return nil, err
				}
				st.Rules = append(st.Rules, rule)
			}
		default:
			return nil, unknownField(field, path, label)
		}
	}
	return st, nil
}

func decodeCUERule(v cue.Value, path string) (Rule, error) {
	var r Rule

	iter, err := v.Fields()
	if err != nil {
		return r, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		field := iter.Value()
		fieldPath := path + "." + label

		switch label {
		case "accept":
			r.Accept, err = cueString(field, fieldPath)
		case "accept_run":
			r.AcceptRun, err = cueString(field, fieldPath)
		case "literal":
			r.Literal, err = cueString(field, fieldPath)
		case "until":
			r.Until, err = cueString(field, fieldPath)
		case "eof":
			r.EOF, err = cueBool(field, fieldPath)
		case "emit":
			r.Emit, err = cueString(field, fieldPath)
		case "ignore":
			r.Ignore, err = cueBool(field, fieldPath)
		case "error":
			r.Error, err = cueString(field, fieldPath)
		case "next":
			r.Next, err = cueString(field, fieldPath)
		default:
			return r, unknownField(field, path, label)
		}
		if err != nil {
			return r, err
		}
	}
	return r, nil
}

func cueString(v cue.Value, path string) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", &CompileError{Field: path, Message: "must be a string", Pos: v.Pos()}
	}
	return s, nil
}

func cueBool(v cue.Value, path string) (bool, error) {
	b, err := v.Bool()
	if err != nil {
		return false, &CompileError{Field: path, Message: "must be a boolean", Pos: v.Pos()}
	}
	return b, nil
}

func unknownField(v cue.Value, path, label string) error {
	return &CompileError{
		Field:   path,
		Message: fmt.Sprintf("unknown field %q", label),
		Pos:     v.Pos(),
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
