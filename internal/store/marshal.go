package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/parlex/internal/canonical"
)

// marshalItemTypes converts the item type table to canonical JSON TEXT.
// A nil table is stored as {}.
func marshalItemTypes(types map[string]int) (string, error) {
	if types == nil {
		return "{}", nil
	}
	data, err := canonical.Marshal(types)
	if err != nil {
		return "", fmt.Errorf("marshal item types: %w", err)
	}
	return string(data), nil
}

// unmarshalItemTypes parses item types TEXT. Returns an empty map for {}.
func unmarshalItemTypes(data string) (map[string]int, error) {
	types := map[string]int{}
	if data == "" {
		return types, nil
	}
	if err := json.Unmarshal([]byte(data), &types); err != nil {
		return nil, fmt.Errorf("unmarshal item types: %w", err)
	}
	return types, nil
}

// timeLayout is fixed-width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime stores times as UTC with nanoseconds. The zero time is "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
