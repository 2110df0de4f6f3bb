package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one definition scanned over
// one input, with expectations on the outcome and assertions on the trace.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definition is the path to a .cue, .yaml or .yml lexer definition.
	// Relative paths are resolved against the scenario file's directory.
	Definition string `yaml:"definition"`

	// Input is the text to scan. It may be empty to exercise readiness.
	Input string `yaml:"input"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Expect checks the scan outcome. If nil, only assertions are evaluated.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the recorded trace and items.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause specifies the expected outcome of the scan.
// Unset fields are not checked.
type ExpectClause struct {
	Ready  *bool  `yaml:"ready,omitempty"`
	Status string `yaml:"status,omitempty"`
	Steps  *int   `yaml:"steps,omitempty"`

	// Error is a substring of the error that ended the run.
	// When empty, the run must end without error.
	Error string `yaml:"error,omitempty"`

	// Items is the full list of expected items, in order.
	// If nil, items are not checked.
	Items []ItemExpect `yaml:"items,omitempty"`
}

// ItemExpect matches one item. Pos is only compared when set.
type ItemExpect struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
	Pos   *int   `yaml:"pos,omitempty"`
}

// Assertion validates the trace or the items.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_order": states are visited in this relative order
	// - "trace_count": a state is invoked exactly Count times
	// - "item_count": exactly Count items of type Item are emitted
	// - "items_equal": emitted items match Items exactly
	// - "run_status": the stored run has status Status
	Type string `yaml:"type"`

	// State is the state name (used by trace_count).
	State string `yaml:"state,omitempty"`

	// States is the expected visiting order (used by trace_order).
	States []string `yaml:"states,omitempty"`

	// Item is the item type name (used by item_count).
	Item string `yaml:"item,omitempty"`

	// Count is the expected number of occurrences (used by trace_count and item_count).
	Count *int `yaml:"count,omitempty"`

	// Items are the expected items (used by items_equal).
	Items []ItemExpect `yaml:"items,omitempty"`

	// Status is the expected run status (used by run_status).
	Status string `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceOrder = "trace_order"
	AssertTraceCount = "trace_count"
	AssertItemCount  = "item_count"
	AssertItemsEqual = "items_equal"
	AssertRunStatus  = "run_status"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the definition path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict fields catch typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Definition != "" && !filepath.IsAbs(scenario.Definition) && basePath != "" {
		scenario.Definition = filepath.Join(basePath, scenario.Definition)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Definition == "" {
		return fmt.Errorf("definition is required")
	}

	if _, err := os.Stat(s.Definition); os.IsNotExist(err) {
		return fmt.Errorf("definition file not found: %s", s.Definition)
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	if s.Expect != nil {
		if err := validateItems("expect.items", s.Expect.Items); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateItems(field string, items []ItemExpect) error {
	for i, it := range items {
		if it.Type == "" {
			return fmt.Errorf("%s[%d]: type is required", field, i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceOrder:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be set and non-negative for trace_count", index)
		}
	case AssertItemCount:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for item_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be set and non-negative for item_count", index)
		}
	case AssertItemsEqual:
		if a.Items == nil {
			return fmt.Errorf("assertions[%d]: items list is required for items_equal", index)
		}
		return validateItems(fmt.Sprintf("assertions[%d].items", index), a.Items)
	case AssertRunStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for run_status", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
