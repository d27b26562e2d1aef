package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/journal"
	"github.com/roach88/entitystate/internal/record"
	"github.com/roach88/entitystate/internal/view"
)

// testContext builds an assertion context over a fixed todo state.
func testContext(t *testing.T) *AssertionContext {
	t.Helper()
	s := entity.State[record.Object]{
		IDs: []string{"0", "1", "2"},
		Entities: map[string]record.Object{
			"0": {"id": record.String("0"), "title": record.String("a"), "done": record.Bool(true)},
			"1": {"id": record.String("1"), "title": record.String("b"), "meta": record.Object{"rank": record.Int(2)}},
			"2": {"id": record.String("2"), "title": record.String("c")},
		},
		Active:   "1",
		PageSize: 2,
	}
	return &AssertionContext{
		Ctx:       context.Background(),
		RunID:     "run-1",
		Selectors: view.For[record.Object]("todo"),
		Tree:      view.Tree{"todo": s},
	}
}

func testTrace(commands ...string) []TraceEvent {
	trace := make([]TraceEvent, len(commands))
	for i, cmd := range commands {
		trace[i] = TraceEvent{Seq: int64(i + 1), Command: cmd, Outcome: outcomeOK}
	}
	return trace
}

func TestAssertView(t *testing.T) {
	actx := testContext(t)

	tests := []struct {
		name    string
		view    string
		expect  any
		wantErr string
	}{
		{name: "size", view: "size", expect: 3},
		{name: "keys", view: "keys", expect: []any{"0", "1", "2"}},
		{name: "active_id", view: "active_id", expect: "1"},
		{name: "active", view: "active", expect: map[string]any{"id": "1", "title": "b", "meta": map[string]any{"rank": 2}}},
		{name: "paginated", view: "paginated", expect: []any{
			map[string]any{"id": "0", "title": "a", "done": true},
			map[string]any{"id": "1", "title": "b", "meta": map[string]any{"rank": 2}},
		}},
		{name: "latest_id", view: "latest_id", expect: "2"},
		{name: "loading", view: "loading", expect: false},
		{name: "error_empty", view: "error", expect: ""},
		{name: "page_size", view: "page_size", expect: 2},
		{name: "size_mismatch", view: "size", expect: 4, wantErr: "size = 4"},
		{name: "type_mismatch", view: "size", expect: "3", wantErr: `size = "3"`},
		{name: "active_mismatch", view: "active", expect: map[string]any{"id": "1"}, wantErr: `"title":"b"`},
		{name: "unknown", view: "newest", expect: 1, wantErr: `unknown view "newest"`},
		{name: "float_expect", view: "size", expect: 3.0, wantErr: "floats are forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertView(actx, nil, Assertion{Type: AssertView, View: tt.view, Expect: tt.expect})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertEntity(t *testing.T) {
	actx := testContext(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "subset_match",
			assertion: Assertion{ID: "0", Expect: map[string]any{"title": "a"}},
		},
		{
			name:      "dotted_path",
			assertion: Assertion{ID: "1", Expect: map[string]any{"meta.rank": 2}},
		},
		{
			name:      "presence_only",
			assertion: Assertion{ID: "2"},
		},
		{
			name:      "absent",
			assertion: Assertion{ID: "9", Absent: true},
		},
		{
			name:      "absent_but_present",
			assertion: Assertion{ID: "0", Absent: true},
			wantErr:   `no record with id "0"`,
		},
		{
			name:      "missing_record",
			assertion: Assertion{ID: "9"},
			wantErr:   "record not found",
		},
		{
			name:      "missing_field",
			assertion: Assertion{ID: "2", Expect: map[string]any{"done": true}},
			wantErr:   `field "done" not present`,
		},
		{
			name:      "value_mismatch",
			assertion: Assertion{ID: "0", Expect: map[string]any{"title": "z"}},
			wantErr:   `0.title = "z"`,
		},
		{
			name:      "expect_not_object",
			assertion: Assertion{ID: "0", Expect: "a"},
			wantErr:   "expected object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertEntity
			err := assertEntity(actx, nil, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertOrder(t *testing.T) {
	actx := testContext(t)

	assert.NoError(t, assertOrder(actx, nil, Assertion{Type: AssertOrder, IDs: []string{"0", "1", "2"}}))

	err := assertOrder(actx, nil, Assertion{Type: AssertOrder, IDs: []string{"1", "0", "2"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "order", ae.Type)
	assert.Equal(t, "ids [0 1 2]", ae.Actual)
}

func TestAssertOrder_MissingCollection(t *testing.T) {
	actx := testContext(t)
	actx.Tree = view.Tree{}

	assert.NoError(t, assertOrder(actx, nil, Assertion{Type: AssertOrder, IDs: []string{}}))
	assert.Error(t, assertOrder(actx, nil, Assertion{Type: AssertOrder, IDs: []string{"0"}}))
}

func TestAssertTraceOrder_Correct(t *testing.T) {
	trace := testTrace("add", "update", "remove")

	err := assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Commands: []string{"add", "remove"}})
	assert.NoError(t, err)
}

func TestAssertTraceOrder_WrongOrder(t *testing.T) {
	trace := testTrace("remove", "add")

	err := assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Commands: []string{"add", "remove"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add (pos 2) should be before remove (pos 1)")
}

func TestAssertTraceOrder_MissingCommand(t *testing.T) {
	trace := testTrace("add")

	err := assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Commands: []string{"add", "reset"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing command: reset")
}

func TestAssertTraceOrder_FirstOccurrenceCounts(t *testing.T) {
	// The first add precedes the remove even though a later add follows it
	trace := testTrace("add", "remove", "add")

	err := assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Commands: []string{"add", "remove"}})
	assert.NoError(t, err)
}

func TestAssertTraceCount(t *testing.T) {
	j, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	ctx := context.Background()
	require.NoError(t, j.BeginRun(ctx, "run-1", "todo", "h"))
	for i, kind := range []string{"add", "add", "remove"} {
		entry := journal.Entry{
			RunID:   "run-1",
			Seq:     int64(i + 1),
			Kind:    kind,
			Type:    "[todo] " + kind,
			Args:    "{}",
			Outcome: journal.OutcomeOK,
		}
		if kind == "remove" {
			entry.Outcome = "INVALID_TARGET"
		}
		require.NoError(t, j.Append(ctx, entry))
	}

	actx := testContext(t)
	actx.Journal = j

	tests := []struct {
		command string
		count   int
		wantErr bool
	}{
		{command: "add", count: 2},
		{command: "remove", count: 1}, // rejected dispatches count
		{command: "reset", count: 0},
		{command: "add", count: 1, wantErr: true},
		{command: "add", count: 3, wantErr: true},
	}

	for _, tt := range tests {
		err := assertTraceCount(actx, nil, Assertion{Type: AssertTraceCount, Command: tt.command, Count: tt.count})
		if tt.wantErr {
			assert.Error(t, err, "%s x%d", tt.command, tt.count)
		} else {
			assert.NoError(t, err, "%s x%d", tt.command, tt.count)
		}
	}
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := NewResult()
	result.Trace = testTrace("add", "setActive")

	assertions := []Assertion{
		{Type: AssertView, View: "size", Expect: 3},
		{Type: AssertEntity, ID: "1"},
		{Type: AssertOrder, IDs: []string{"0", "1", "2"}},
		{Type: AssertTraceOrder, Commands: []string{"add", "setActive"}},
	}

	errs := EvaluateAssertions(result, assertions, testContext(t))
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	result := NewResult()
	result.Trace = testTrace("add")

	assertions := []Assertion{
		{Type: AssertView, View: "size", Expect: 3},
		{Type: AssertView, View: "size", Expect: 0},
		{Type: AssertTraceOrder, Commands: []string{"reset"}},
	}

	errs := EvaluateAssertions(result, assertions, testContext(t))
	assert.Len(t, errs, 2)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "final_state"}}, testContext(t))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "final_state"`)
}

func TestEvaluateAssertions_WithoutContext(t *testing.T) {
	result := NewResult()
	result.Trace = testTrace("add")

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceOrder, Commands: []string{"add"}},
		{Type: AssertView, View: "size", Expect: 0},
	}, nil)
	require.Len(t, errs, 1, "trace_order needs no context")
	assert.Contains(t, errs[0], "requires an assertion context")
}

func TestEvaluateAssertions_TraceCountWithoutJournal(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertTraceCount, Command: "add", Count: 0},
	}, testContext(t))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "trace_count requires a journal")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     "view",
		Expected: "size = 2",
		Actual:   "size = 1",
		Trace: []TraceEvent{
			{Seq: 1, Command: "add", Outcome: outcomeOK, Size: 1},
			{Seq: 2, Command: "add", Outcome: "UNABLE_TO_GENERATE_ID", Size: 1},
		},
	}

	want := "Assertion failed: view\n" +
		"  Expected: size = 2\n" +
		"  Actual: size = 1\n" +
		"\nFull trace:\n" +
		"  [1] add ok (size 1)\n" +
		"  [2] add UNABLE_TO_GENERATE_ID (size 1)\n"
	assert.Equal(t, want, err.Error())
}

func TestAssertionError_NoTrace(t *testing.T) {
	err := &AssertionError{Type: "order", Expected: "ids [a]", Actual: "ids []"}
	assert.NotContains(t, err.Error(), "Full trace")
}
