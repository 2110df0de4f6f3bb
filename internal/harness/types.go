package harness

import "github.com/roach88/parlex/internal/store"

// TraceEvent is one recorded state invocation.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	State  string `json:"state"`
	Next   string `json:"next"`
	Cursor int    `json:"cursor"`
	Items  int    `json:"items"`
}

// ItemEvent is one emitted item, typed by name.
type ItemEvent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Pos   int    `json:"pos"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	Steps  int    `json:"steps"`

	// Trace holds state invocations in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Items holds emitted items in emission order.
	Items []ItemEvent `json:"items"`

	// Err is the message of the error that ended the run, if any.
	Err string `json:"error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Items:  []ItemEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func traceEvents(trs []store.Transition) []TraceEvent {
	out := make([]TraceEvent, len(trs))
	for i, tr := range trs {
		out[i] = TraceEvent{
			Seq:    tr.Seq,
			State:  tr.State,
			Next:   tr.Next,
			Cursor: tr.Cursor,
			Items:  tr.Items,
		}
	}
	return out
}

func itemEvents(items []store.Item) []ItemEvent {
	out := make([]ItemEvent, len(items))
	for i, it := range items {
		out[i] = ItemEvent{Type: it.TypeName, Value: it.Value, Pos: it.Pos}
	}
	return out
}
