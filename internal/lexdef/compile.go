package lexdef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/parlex/internal/canonical"
	"github.com/roach88/parlex/internal/machine"
)

// Consumer receives every item a compiled definition captures, error items
// included. A machine parser that implements Consumer is fed items as they
// are captured.
type Consumer interface {
	Consume(item machine.Item) error
}

// Compile turns def into the item type and state function tables of a
// machine.Config. Input and Parser are left for the caller.
//
// Compile fails only on Check errors. Lint warnings compile; the engine
// reports them as dispatch errors if they are reached.
func Compile(def *Definition) (machine.Config, error) {
	if issues := Check(def); len(issues) > 0 {
		errs := make([]error, len(issues))
		for i, is := range issues {
			errs[i] = is
		}
		return machine.Config{}, fmt.Errorf("definition %q: %w", def.Name, errors.Join(errs...))
	}

	var cfg machine.Config
	if def.ItemTypes != nil {
		cfg.ItemTypes = make(map[string]machine.ItemType, len(def.ItemTypes))
		for name, n := range def.ItemTypes {
			cfg.ItemTypes[name] = machine.ItemType(n)
		}
	}

	cfg.StateFunctions = make(map[string]machine.StateFn, len(def.States))
	for name, st := range def.States {
		if st == nil {
			cfg.StateFunctions[name] = nil
			continue
		}
		cfg.StateFunctions[name] = compileState(name, st.Rules)
	}
	return cfg, nil
}

func compileState(name string, rules []Rule) machine.StateFn {
	return func(m *machine.Machine) string {
		for _, r := range rules {
			if !match(m, r) {
				continue
			}
			return apply(m, r)
		}
		if r := m.Peek(); r != machine.EOF {
			return fail(m, "unexpected %q in state %s", r, name)
		}
		return fail(m, "unexpected EOF in state %s", name)
	}
}

// match advances the cursor over the rule's matcher. A failed match leaves
// the cursor where it was.
func match(m *machine.Machine, r Rule) bool {
	switch {
	case r.Accept != "":
		return m.Accept(r.Accept)
	case r.AcceptRun != "":
		return m.AcceptRun(r.AcceptRun) > 0
	case r.Literal != "":
		if !strings.HasPrefix(m.Input()[m.Cursor:], r.Literal) {
			return false
		}
		m.Cursor += len(r.Literal)
		m.Width = 0
		return true
	case r.Until != "":
		rest := m.Input()[m.Cursor:]
		n := strings.Index(rest, r.Until)
		if n < 0 {
			n = len(rest)
		}
		if n == 0 {
			return false
		}
		m.Cursor += n
		m.Width = 0
		return true
	case r.EOF:
		return m.AtEOF()
	default:
		return true
	}
}

func apply(m *machine.Machine, r Rule) string {
	switch {
	case r.Error != "":
		return fail(m, "%s", r.Error)
	case r.Ignore:
		m.Ignore()
	case r.Emit != "":
		item, ok := m.EmitNamed(r.Emit)
		if !ok {
			return fail(m, "item type %q is not declared", r.Emit)
		}
		if c, ok := m.Parser().(Consumer); ok {
			if err := c.Consume(item); err != nil {
				return fail(m, "consumer rejected %q: %v", item.Value, err)
			}
		}
	}
	return r.Next
}

// fail records an error item, hands it to the consumer and stops the run.
// A consumer error here is dropped; the run is stopping regardless.
func fail(m *machine.Machine, format string, args ...any) string {
	next := m.Errorf(format, args...)
	if c, ok := m.Parser().(Consumer); ok {
		_ = c.Consume(m.Items[len(m.Items)-1])
	}
	return next
}

// Hash returns a content hash of def, stable across formats and key order.
func Hash(def *Definition) (string, error) {
	return canonical.Hash(canonical.DomainDefinition, canonicalForm(def))
}

func canonicalForm(def *Definition) map[string]any {
	states := make(map[string]any, len(def.States))
	for name, st := range def.States {
		if st == nil {
			states[name] = nil
			continue
		}
		rules := make([]any, len(st.Rules))
		for i, r := range st.Rules {
			rules[i] = canonicalRule(r)
		}
		states[name] = map[string]any{
			"description": st.Description,
			"rules":       rules,
		}
	}

	form := map[string]any{
		"name":   def.Name,
		"states": states,
	}
	if def.ItemTypes != nil {
		form["item_types"] = def.ItemTypes
	}
	return form
}

func canonicalRule(r Rule) map[string]any {
	out := map[string]any{}
	set := func(key, v string) {
		if v != "" {
			out[key] = v
		}
	}
	set("accept", r.Accept)
	set("accept_run", r.AcceptRun)
	set("literal", r.Literal)
	set("until", r.Until)
	set("emit", r.Emit)
	set("error", r.Error)
	set("next", r.Next)
	if r.EOF {
		out["eof"] = true
	}
	if r.Ignore {
		out["ignore"] = true
	}
	return out
}
