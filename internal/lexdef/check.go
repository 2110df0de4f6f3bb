package lexdef

import (
	"fmt"
	"strings"

	"github.com/roach88/parlex/internal/canonical"
	"github.com/roach88/parlex/internal/machine"
)

// Check error codes (E100-E199)
const (
	ErrNoStates         = "E101" // at least one state required
	ErrReservedName     = "E102" // empty state or item type name
	ErrMultipleMatchers = "E103" // more than one matcher in a rule
	ErrUndeclaredEmit   = "E104" // emit names an unknown item type
	ErrConflictingRule  = "E105" // emit/ignore/error combined
	ErrErrorWithNext    = "E106" // error rules always stop
	ErrReservedType     = "E107" // item type value collides with machine.ItemError
)

// Lint warning codes (W200-W299)
const (
	WarnMissingInit    = "W201" // no init state; the machine will not be ready
	WarnUnknownNext    = "W202" // next names a state that is not declared
	WarnUnreachable    = "W203" // rule follows a rule with no matcher
	WarnSelfLoop       = "W204" // rule consumes nothing and returns to its own state
	WarnNullTransition = "W205" // next names an explicit null state
)

// Issue is a problem found by Check or Lint.
type Issue struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Field, i.Message)
}

// Check validates the structure of def. Returns all errors found.
func Check(def *Definition) []Issue {
	var issues []Issue

	if len(def.States) == 0 {
		issues = append(issues, Issue{Code: ErrNoStates, Field: "states", Message: "at least one state is required"})
	}

	for _, name := range canonical.SortedKeys(def.ItemTypes) {
		if name == "" {
			issues = append(issues, Issue{Code: ErrReservedName, Field: "item_types", Message: "item type name must not be empty"})
		}
		if def.ItemTypes[name] == int(machine.ItemError) {
			issues = append(issues, Issue{
				Code:    ErrReservedType,
				Field:   "item_types." + name,
				Message: fmt.Sprintf("value %d is reserved for error items", machine.ItemError),
			})
		}
	}

	for _, name := range canonical.SortedKeys(def.States) {
		if name == machine.Stop {
			issues = append(issues, Issue{Code: ErrReservedName, Field: "states", Message: "the empty state name is the stop signal"})
			continue
		}
		st := def.States[name]
		if st == nil {
			continue
		}
		for i, r := range st.Rules {
			issues = append(issues, checkRule(def, fmt.Sprintf("states.%s.rules[%d]", name, i), r)...)
		}
	}
	return issues
}

func checkRule(def *Definition, field string, r Rule) []Issue {
	var issues []Issue

	if m := r.matchers(); len(m) > 1 {
		issues = append(issues, Issue{
			Code:    ErrMultipleMatchers,
			Field:   field,
			Message: fmt.Sprintf("at most one matcher allowed, got %s", strings.Join(m, ", ")),
		})
	}

	actions := 0
	for _, set := range []bool{r.Emit != "", r.Ignore, r.Error != ""} {
		if set {
			actions++
		}
	}
	if actions > 1 {
		issues = append(issues, Issue{Code: ErrConflictingRule, Field: field, Message: "emit, ignore and error are exclusive"})
	}

	if r.Emit != "" {
		if _, ok := def.ItemTypes[r.Emit]; !ok {
			issues = append(issues, Issue{
				Code:    ErrUndeclaredEmit,
				Field:   field + ".emit",
				Message: fmt.Sprintf("item type %q is not declared", r.Emit),
			})
		}
	}

	if r.Error != "" && r.Next != "" {
		issues = append(issues, Issue{Code: ErrErrorWithNext, Field: field + ".next", Message: "error rules stop the run; next is never taken"})
	}
	return issues
}

// Lint reports definitions that compile but will misbehave at run time.
// The engine reports the same conditions on its own when they are reached;
// Lint finds them before a run.
func Lint(def *Definition) []Issue {
	var issues []Issue

	if _, ok := def.States[machine.InitState]; !ok {
		issues = append(issues, Issue{
			Code:    WarnMissingInit,
			Field:   "states",
			Message: fmt.Sprintf("state %q is required for the machine to run", machine.InitState),
		})
	}

	for _, name := range canonical.SortedKeys(def.States) {
		st := def.States[name]
		if st == nil {
			continue
		}

		catchAll := -1
		for i, r := range st.Rules {
			field := fmt.Sprintf("states.%s.rules[%d]", name, i)

			if catchAll >= 0 {
				issues = append(issues, Issue{
					Code:    WarnUnreachable,
					Field:   field,
					Message: fmt.Sprintf("unreachable after rules[%d], which has no matcher", catchAll),
				})
			}
			if len(r.matchers()) == 0 && catchAll < 0 {
				catchAll = i
			}

			if r.Next == "" {
				continue
			}
			target, ok := def.States[r.Next]
			switch {
			case !ok:
				issues = append(issues, Issue{
					Code:    WarnUnknownNext,
					Field:   field + ".next",
					Message: fmt.Sprintf("state %q is not declared", r.Next),
				})
			case target == nil:
				issues = append(issues, Issue{
					Code:    WarnNullTransition,
					Field:   field + ".next",
					Message: fmt.Sprintf("state %q is null", r.Next),
				})
			}
			if r.Next == name && !consumes(r) {
				issues = append(issues, Issue{
					Code:    WarnSelfLoop,
					Field:   field,
					Message: "rule consumes no input and loops to its own state",
				})
			}
		}
	}
	return issues
}

// consumes reports whether a matching rule always advances the cursor.
func consumes(r Rule) bool {
	return r.Accept != "" || r.AcceptRun != "" || r.Literal != "" || r.Until != ""
}

