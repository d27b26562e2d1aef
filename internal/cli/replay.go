package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/entitystate/internal/harness"
	"github.com/roach88/entitystate/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
	RunID   string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string               `json:"run_id"`
	Collection    string               `json:"collection"`
	Entries       int                  `json:"entries"`
	FinalSize     int                  `json:"final_size"`
	Deterministic bool                 `json:"deterministic"`
	Skipped       string               `json:"skipped,omitempty"`
	Diverged      []harness.ReplayStep `json:"diverged,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <collections-dir>",
		Short: "Replay journaled runs and verify determinism",
		Long: `Replay journaled runs against their collection definitions.

Each run is rebuilt from a fresh collection by dispatching its journaled
commands again in seq order. Every resulting state fingerprint and
outcome must equal the journaled one. A run whose definition changed
since it was journaled cannot be replayed and fails verification.
Runs of collections no longer defined are skipped.

Exit codes:
  0 - All runs replayed identically
  1 - Determinism verification failed (differences detected)
  2 - Command error (journal not found, etc.)

Examples:
  entityctl replay ./collections --journal ./journal.db
  entityctl replay ./collections --journal ./journal.db --run test-run-1
  entityctl replay ./collections --journal ./journal.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, collectionsDir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	loadResult, loadErrors := LoadCollections(collectionsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load collections", loadErrors[0])
	}

	j, err := openExistingJournal(opts.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	// Get runs to process
	var runs []journal.Run
	if opts.RunID != "" {
		run, err := j.ReadRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", opts.RunID), err)
		}
		runs = []journal.Run{run}
	} else {
		runs, err = j.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		formatter.VerboseLog("Replaying run: %s", run.ID)
		runResult, err := replayRun(ctx, j, loadResult, run, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayRun replays a single run and collects the entries that diverged.
func replayRun(ctx context.Context, j *journal.Journal, loaded *LoadResult, run journal.Run, logger *slog.Logger) (ReplayRunResult, error) {
	out := ReplayRunResult{
		RunID:         run.ID,
		Collection:    run.Collection,
		Entries:       run.Entries,
		Deterministic: true,
	}

	def := loaded.Find(run.Collection)
	if def == nil {
		out.Skipped = fmt.Sprintf("collection %q is not defined", run.Collection)
		return out, nil
	}

	session, steps, err := harness.Replay(ctx, j, def, run.ID, harness.WithLogger(logger))
	if errors.Is(err, harness.ErrDefinitionChanged) {
		out.Deterministic = false
		out.Skipped = "definition changed since the run was journaled"
		return out, nil
	}
	if err != nil {
		return ReplayRunResult{}, err
	}

	for _, step := range steps {
		if !step.Match {
			out.Deterministic = false
			out.Diverged = append(out.Diverged, step)
		}
	}
	out.FinalSize = session.State().Size()
	return out, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Response(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	if result.TotalRuns == 0 {
		formatter.Printf("No runs found in journal.\n")
		return nil
	}

	formatter.Printf("Replay Summary: %d run(s)\n\n", result.TotalRuns)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		formatter.Printf("%s Run: %s (%s)\n", status, run.RunID, run.Collection)
		if run.Skipped != "" {
			formatter.Printf("  Skipped: %s\n\n", run.Skipped)
			continue
		}
		formatter.Printf("  Commands: %d, final size %d\n", run.Entries, run.FinalSize)

		for _, step := range run.Diverged {
			formatter.Printf("  Diverged at [%d] %s: %s\n", step.Seq, step.Type, step.Outcome)
			if formatter.Verbose {
				formatter.Printf("    want %s\n    got  %s\n", truncateHash(step.WantHash), truncateHash(step.GotHash))
			}
		}
		formatter.Printf("\n")
	}

	if result.AllDeterministic {
		formatter.Printf("✓ All runs verified deterministic\n")
		return nil
	}

	formatter.Printf("✗ Determinism verification failed\n")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
