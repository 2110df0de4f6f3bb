package lexdef

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// Definition is a declarative lexer: named item types plus a table of states
// whose rules are compiled into state functions.
type Definition struct {
	Name      string               `yaml:"name"`
	ItemTypes map[string]int       `yaml:"item_types"`
	States    map[string]*StateDef `yaml:"states"`
}

// StateDef is one state. A nil *StateDef in Definition.States is an explicit
// null state: declared, but a dispatch error if reached.
type StateDef struct {
	Description string `yaml:"description"`
	Rules       []Rule `yaml:"rules"`
}

// Rule is tried in order within its state. At most one matcher may be set;
// a rule with no matcher always matches.
type Rule struct {
	// Matchers
	Accept    string `yaml:"accept"`     // one rune from the set
	AcceptRun string `yaml:"accept_run"` // one or more runes from the set
	Literal   string `yaml:"literal"`    // exact text
	Until     string `yaml:"until"`      // everything up to (not including) the text, or to EOF
	EOF       bool   `yaml:"eof"`        // end of input

	// Actions
	Emit   string `yaml:"emit"`   // item type name for the pending text
	Ignore bool   `yaml:"ignore"` // drop the pending text
	Error  string `yaml:"error"`  // append an error item and stop

	Next string `yaml:"next"` // next state; empty stops the run
}

func (r Rule) matchers() []string {
	var set []string
	if r.Accept != "" {
		set = append(set, "accept")
	}
	if r.AcceptRun != "" {
		set = append(set, "accept_run")
	}
	if r.Literal != "" {
		set = append(set, "literal")
	}
	if r.Until != "" {
		set = append(set, "until")
	}
	if r.EOF {
		set = append(set, "eof")
	}
	return set
}

// CompileError reports a problem decoding a definition file.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
