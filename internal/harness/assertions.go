package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/entitystate/internal/journal"
	"github.com/roach88/entitystate/internal/record"
	"github.com/roach88/entitystate/internal/view"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s (size %d)\n", event.Seq, event.Command, event.Outcome, event.Size)
		}
	}

	return buf.String()
}

// AssertionContext provides what assertions are evaluated against: the
// final state through view selectors and the run's journal entries.
type AssertionContext struct {
	Journal   *journal.Journal
	Ctx       context.Context
	RunID     string
	Selectors view.Selectors[record.Object]
	Tree      view.Tree
}

// assertView evaluates a named view and compares it with the expected
// value. Comparison is exact; for records use an entity assertion for
// subset matching.
func assertView(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	if _, ok := views[assertion.View]; !ok {
		return fmt.Errorf("unknown view %q", assertion.View)
	}
	want, err := record.FromAny(assertion.Expect)
	if err != nil {
		return fmt.Errorf("view %s: expect: %w", assertion.View, err)
	}
	got, err := evalView(assertion.View, actx.Selectors, actx.Tree)
	if err != nil {
		return fmt.Errorf("view %s: %w", assertion.View, err)
	}

	if !record.Equal(got, want) {
		return &AssertionError{
			Type:     "view",
			Expected: fmt.Sprintf("%s = %s", assertion.View, formatValue(want)),
			Actual:   fmt.Sprintf("%s = %s", assertion.View, formatValue(got)),
			Trace:    trace,
		}
	}
	return nil
}

// assertEntity checks a record by id. With expect, every expected field
// must be present with an equal value (subset semantics). With absent, the
// record must not exist. With neither, the record must exist.
func assertEntity(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	s, _ := actx.Selectors.State(actx.Tree)
	obj, exists := s.Entities[assertion.ID]

	if assertion.Absent {
		if exists {
			return &AssertionError{
				Type:     "entity",
				Expected: fmt.Sprintf("no record with id %q", assertion.ID),
				Actual:   fmt.Sprintf("found %s", formatValue(obj)),
				Trace:    trace,
			}
		}
		return nil
	}

	if !exists {
		return &AssertionError{
			Type:     "entity",
			Expected: fmt.Sprintf("record with id %q", assertion.ID),
			Actual:   "record not found",
			Trace:    trace,
		}
	}
	if assertion.Expect == nil {
		return nil
	}

	want, err := record.ObjectFromAny(assertion.Expect)
	if err != nil {
		return fmt.Errorf("entity %s: expect: %w", assertion.ID, err)
	}
	for _, key := range want.SortedKeys() {
		got, ok := obj.Get(key)
		if !ok {
			return &AssertionError{
				Type:     "entity",
				Expected: fmt.Sprintf("field %q on %q", key, assertion.ID),
				Actual:   fmt.Sprintf("field %q not present in %s", key, formatValue(obj)),
				Trace:    trace,
			}
		}
		if !record.Equal(got, want[key]) {
			return &AssertionError{
				Type:     "entity",
				Expected: fmt.Sprintf("%s.%s = %s", assertion.ID, key, formatValue(want[key])),
				Actual:   fmt.Sprintf("%s.%s = %s", assertion.ID, key, formatValue(got)),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertOrder checks the insertion order of ids in the final state.
func assertOrder(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	got := actx.Selectors.Keys()(actx.Tree)
	if !slices.Equal(got, assertion.IDs) {
		return &AssertionError{
			Type:     "order",
			Expected: fmt.Sprintf("ids %v", assertion.IDs),
			Actual:   fmt.Sprintf("ids %v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks if commands appear in the specified order.
// Commands don't need to be consecutive (intervening commands are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each expected command
	positions := make(map[string]int)

	for i, event := range trace {
		for _, expected := range assertion.Commands {
			if event.Command == expected && positions[expected] == 0 {
				positions[expected] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all commands found
	for _, cmd := range assertion.Commands {
		if positions[cmd] == 0 {
			return &AssertionError{
				Type:     "trace_order",
				Expected: fmt.Sprintf("all commands present: %v", assertion.Commands),
				Actual:   fmt.Sprintf("missing command: %s", cmd),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Commands); i++ {
		prev := assertion.Commands[i-1]
		curr := assertion.Commands[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     "trace_order",
				Expected: fmt.Sprintf("commands in order: %v", assertion.Commands),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the command was dispatched exactly the specified
// number of times, counting journal entries so rejected dispatches are
// included.
func assertTraceCount(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	count, err := actx.Journal.CountEntries(actx.Ctx, actx.RunID, assertion.Command)
	if err != nil {
		return fmt.Errorf("count %s: %w", assertion.Command, err)
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     "trace_count",
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Command),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// formatValue renders v as canonical JSON for failure messages.
func formatValue(v record.Value) string {
	data, err := record.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the final state and the run's journal.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch {
		case assertion.Type == AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case actx == nil:
			err = fmt.Errorf("assertion[%d]: %s requires an assertion context", i, assertion.Type)
		case assertion.Type == AssertView:
			err = assertView(actx, result.Trace, assertion)
		case assertion.Type == AssertEntity:
			err = assertEntity(actx, result.Trace, assertion)
		case assertion.Type == AssertOrder:
			err = assertOrder(actx, result.Trace, assertion)
		case assertion.Type == AssertTraceCount:
			if actx.Journal == nil {
				err = fmt.Errorf("assertion[%d]: trace_count requires a journal", i)
			} else {
				err = assertTraceCount(actx, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
