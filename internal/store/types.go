package store

import (
	"time"

	"github.com/roach88/parlex/internal/machine"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusFinished  = "finished"
	StatusSkipped   = "skipped"   // machine was not ready; nothing ran
	StatusFailed    = "failed"    // dispatch error
	StatusCancelled = "cancelled" // context cancelled between states
)

// Run is one persisted scan.
type Run struct {
	ID             string
	Definition     string
	DefinitionHash string
	ItemTypes      map[string]int
	Input          string
	Ready          bool
	Status         string
	Steps          int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time // zero while running
}

// Finish is the outcome recorded by FinishRun.
type Finish struct {
	Status string
	Steps  int
	Error  string
	At     time.Time
}

// Transition is one state invocation.
type Transition struct {
	Seq    int64
	State  string
	Next   string // returned name; "" means the run stopped
	Cursor int    // cursor after the state returned
	Items  int    // item count after the state returned
	At     time.Time
}

// Item is a captured item with its type name resolved.
type Item struct {
	Index    int
	Type     int
	TypeName string // "" when the type has no name, "error" for error items
	Value    string
	Pos      int
}

// ItemsFrom resolves type names for machine items against types.
func ItemsFrom(items []machine.Item, types map[string]machine.ItemType) []Item {
	names := make(map[machine.ItemType]string, len(types))
	for name, t := range types {
		// Ties resolve to the smallest name so the mapping is deterministic.
		if prev, ok := names[t]; !ok || name < prev {
			names[t] = name
		}
	}

	out := make([]Item, len(items))
	for i, it := range items {
		name := names[it.Type]
		if it.Type == machine.ItemError && name == "" {
			name = "error"
		}
		out[i] = Item{
			Index:    i,
			Type:     int(it.Type),
			TypeName: name,
			Value:    it.Value,
			Pos:      it.Pos,
		}
	}
	return out
}
