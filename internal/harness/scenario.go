package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/entitystate/internal/command"
)

// Scenario defines a collection test scenario.
// Scenarios dispatch a sequence of commands against one collection and
// assert on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Collections lists paths to CUE files defining collections.
	// Paths are relative to the scenario file location.
	Collections []string `yaml:"collections"`

	// Collection names the collection the steps are dispatched to.
	Collection string `yaml:"collection"`

	// Steps are dispatched in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: view, entity, order, trace_count, trace_order
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id for deterministic tests.
	// If empty, defaults to "test-run-default" for deterministic golden file comparison.
	RunID string `yaml:"run_id,omitempty"`
}

// Step is one dispatched command.
type Step struct {
	// Command is the command kind (e.g., "add", "goToPage").
	Command string `yaml:"command"`

	// Args holds the command's arguments; see buildCommand for the keys
	// each kind reads.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the command must be applied.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected dispatch behavior.
type ExpectClause struct {
	// Error is the expected error code (e.g., "NO_ACTIVE_ENTITY").
	// Empty means the command must be applied.
	Error string `yaml:"error,omitempty"`

	// Size is the expected collection size after the step.
	Size *int `yaml:"size,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "view": Evaluate a selector and compare with expect
	// - "entity": Check a record by id (subset match on expect)
	// - "order": Check the insertion order of ids
	// - "trace_count": Check a command kind was dispatched exactly N times
	// - "trace_order": Check command kinds were dispatched in order
	Type string `yaml:"type"`

	// View is the selector name (used by view).
	View string `yaml:"view,omitempty"`

	// ID is the record id (used by entity).
	ID string `yaml:"id,omitempty"`

	// Absent asserts the record does not exist (used by entity).
	Absent bool `yaml:"absent,omitempty"`

	// Expect is the expected value (used by view and entity).
	// For entity it is a subset match on the record's fields.
	Expect any `yaml:"expect,omitempty"`

	// IDs is the expected insertion order (used by order).
	IDs []string `yaml:"ids,omitempty"`

	// Command is the command kind (used by trace_count).
	Command string `yaml:"command,omitempty"`

	// Count is the expected number of dispatches (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Commands is the expected dispatch order (used by trace_order).
	Commands []string `yaml:"commands,omitempty"`
}

// Assertion type constants.
const (
	AssertView       = "view"
	AssertEntity     = "entity"
	AssertOrder      = "order"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Collection paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving collection paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve collection paths relative to base path BEFORE validation
	for i, p := range scenario.Collections {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Collections[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes a scenario without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if len(s.Collections) == 0 {
		return fmt.Errorf("collections list is required and must be non-empty")
	}

	if s.Collection == "" {
		return fmt.Errorf("collection is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Collections {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("collection file not found: %s", p)
		}
	}

	for i, step := range s.Steps {
		if step.Command == "" {
			return fmt.Errorf("steps[%d]: command is required", i)
		}
		if _, err := command.ParseKind(step.Command); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
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
	case AssertView:
		if _, ok := views[a.View]; !ok {
			return fmt.Errorf("assertions[%d]: unknown view %q", index, a.View)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for view", index)
		}
	case AssertEntity:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for entity", index)
		}
		if a.Absent && a.Expect != nil {
			return fmt.Errorf("assertions[%d]: absent and expect are exclusive", index)
		}
	case AssertOrder:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids list is required for order", index)
		}
	case AssertTraceCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
