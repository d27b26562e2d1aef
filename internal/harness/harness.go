package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/entitystate/internal/compiler"
	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/journal"
	"github.com/roach88/entitystate/internal/record"
	"github.com/roach88/entitystate/internal/view"
)

// Harness is the test execution engine.
// It runs scenarios with deterministic clock and run ids.
type Harness struct {
	*Session
	sel  view.Selectors[record.Object]
	tree view.Tree
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	journal *journal.Journal
	logger  *slog.Logger
	entropy io.Reader
}

// WithJournal journals the run into j instead of a private in-memory
// journal. The caller keeps ownership of j.
func WithJournal(j *journal.Journal) Option {
	return func(c *runConfig) {
		c.journal = j
	}
}

// WithLogger sets the logger for the run. Defaults to discarding logs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithEntropy sets the live random source of the uuid id strategy.
// Defaults to crypto/rand.
func WithEntropy(r io.Reader) Option {
	return func(c *runConfig) {
		c.entropy = r
	}
}

func newRunConfig(opts []Option) runConfig {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh collection and, unless WithJournal is
// given, a fresh in-memory journal. Deterministic helpers ensure
// reproducible results.
//
// Execution flow:
// 1. Compile the collection definitions and build the named collection
// 2. Dispatch every step through a command store
// 3. Journal each dispatch and check the step's expect clause
// 4. Evaluate assertions against the final state and the journal
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := newRunConfig(opts)

	def, err := findCollection(scenario)
	if err != nil {
		return nil, err
	}

	j := cfg.journal
	if j == nil {
		j, err = journal.Open(journal.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
		}
		defer j.Close()
	}

	session, err := newSession(j, def, scenario.RunID, cfg)
	if err != nil {
		return nil, err
	}
	h := &Harness{
		Session: session,
		sel:     view.For[record.Object](def.Name),
	}
	h.tree = view.Tree{def.Name: h.store}

	ctx := context.Background()
	if err := j.BeginRun(ctx, h.RunID(), def.Name, h.defHash); err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = h.RunID()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{
		Journal:   j,
		Ctx:       ctx,
		RunID:     h.RunID(),
		Selectors: h.sel,
		Tree:      h.tree,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	result.Final = Snapshot(h.store.State())
	return result, nil
}

// findCollection compiles the scenario's CUE files and returns the
// definition named by scenario.Collection.
func findCollection(scenario *Scenario) (*compiler.CollectionDef, error) {
	for _, path := range scenario.Collections {
		defs, err := compiler.CompileFile(path)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", path, err)
		}
		for _, def := range defs {
			if def.Name == scenario.Collection {
				return def, nil
			}
		}
	}
	return nil, fmt.Errorf("collection %q not defined in %v", scenario.Collection, scenario.Collections)
}

// executeSteps dispatches every step and validates expect clauses.
//
// Each step:
// 1. Converts its args into a command (malformed args abort the run)
// 2. Dispatches the command through the store
// 3. Journals the dispatch with canonical args and a state fingerprint
// 4. Records a trace event and checks the expect clause
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		cmd, args, err := buildCommand(step)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		d, err := h.apply(ctx, cmd, args)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		entry := d.Entry
		if err := h.journal.Append(ctx, entry); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		result.AddTrace(TraceEvent{
			Seq:     entry.Seq,
			Command: step.Command,
			Type:    entry.Type,
			Args:    args,
			Outcome: entry.Outcome,
			Message: entry.Message,
			Size:    entry.Size,
		})

		for _, msg := range checkExpect(i, step, d.Err, d.Next) {
			result.AddError(msg)
		}

		h.logger.Info("step dispatched",
			"step", i,
			"type", entry.Type,
			"seq", entry.Seq,
			"outcome", entry.Outcome,
		)
	}
	return nil
}

// outcomeOf returns the entity error code of err, or "ERROR" for errors
// raised outside the entity package.
func outcomeOf(err error) string {
	if code := entity.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

// checkExpect compares a dispatch with the step's expect clause.
func checkExpect(index int, step Step, err error, next entity.State[record.Object]) []string {
	var msgs []string
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}

	switch {
	case want == "" && err != nil:
		msgs = append(msgs, fmt.Sprintf("step %d (%s): unexpected error %s: %v", index, step.Command, outcomeOf(err), err))
	case want != "" && err == nil:
		msgs = append(msgs, fmt.Sprintf("step %d (%s): expected error %s, command was applied", index, step.Command, want))
	case want != "" && !errors.Is(err, &entity.Error{Code: entity.ErrorCode(want)}):
		msgs = append(msgs, fmt.Sprintf("step %d (%s): expected error %s, got %s: %v", index, step.Command, want, outcomeOf(err), err))
	}

	if step.Expect != nil && step.Expect.Size != nil && next.Size() != *step.Expect.Size {
		msgs = append(msgs, fmt.Sprintf("step %d (%s): expected size %d, got %d", index, step.Command, *step.Expect.Size, next.Size()))
	}
	return msgs
}
