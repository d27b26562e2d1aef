package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/entitystate/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	RunID   string // optional - show one run's entries
	Kind    string // optional - filter entries to a command kind
}

// TraceResult holds one run's entries and summary.
type TraceResult struct {
	RunID   string          `json:"run_id"`
	Entries []journal.Entry `json:"entries"`
	Summary journal.Summary `json:"summary"`
}

// RunsResult lists the journaled runs.
type RunsResult struct {
	Runs []journal.Run `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List journaled runs or show one run's commands",
		Long: `Inspect the command journal.

Without --run, lists every journaled run in the order they began.
With --run, shows the run's dispatched commands in seq order with their
outcome and resulting size, followed by a summary of applied and
rejected commands.

Examples:
  entityctl trace --journal ./journal.db
  entityctl trace --journal ./journal.db --run test-run-1
  entityctl trace --journal ./journal.db --run test-run-1 --kind add
  entityctl trace --journal ./journal.db --run test-run-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter entries to a command kind")

	return cmd
}

// openExistingJournal opens a journal file that must already exist;
// journal.Open would otherwise create an empty one.
func openExistingJournal(path string) (*journal.Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	j, err := openExistingJournal(opts.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	if opts.RunID == "" {
		runs, err := j.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if formatter.IsJSON() {
			return formatter.Response(CLIResponse{Status: "ok", Data: RunsResult{Runs: runs}})
		}
		outputRunsText(formatter, runs)
		return nil
	}

	summary, err := j.Summarize(ctx, opts.RunID)
	if errors.Is(err, journal.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run %q not found", opts.RunID), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize run", err)
	}

	entries, err := j.Entries(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}
	entries = filterEntries(entries, opts.Kind)

	result := TraceResult{
		RunID:   opts.RunID,
		Entries: entries,
		Summary: summary,
	}

	if formatter.IsJSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: result, RunID: opts.RunID})
	}
	outputTraceText(formatter, result)
	return nil
}

// filterEntries keeps the entries of one command kind.
// An empty kind keeps every entry.
func filterEntries(entries []journal.Entry, kind string) []journal.Entry {
	if kind == "" {
		return entries
	}
	filtered := []journal.Entry{}
	for _, e := range entries {
		if e.Kind == kind {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// outputRunsText prints the run list.
func outputRunsText(formatter *OutputFormatter, runs []journal.Run) {
	if len(runs) == 0 {
		formatter.Printf("No runs found in journal.\n")
		return
	}

	formatter.Printf("=== Runs ===\n")
	for _, r := range runs {
		formatter.Printf("  %s  %s  %d command(s)\n", r.ID, r.Collection, r.Entries)
		if formatter.Verbose {
			formatter.Printf("       def: %s\n", truncateHash(r.DefHash))
		}
	}
}

// outputTraceText prints one run's entries and summary.
func outputTraceText(formatter *OutputFormatter, result TraceResult) {
	formatter.Printf("Trace for Run: %s (%s)\n\n", result.RunID, result.Summary.Run.Collection)

	formatter.Printf("=== Commands ===\n")
	if len(result.Entries) == 0 {
		formatter.Printf("  (no commands)\n")
	}
	for _, e := range result.Entries {
		formatter.Printf("  [%d] %s %s (size %d)\n", e.Seq, e.Kind, e.Outcome, e.Size)
		if formatter.Verbose {
			formatter.Printf("       Args: %s\n", e.Args)
			if e.Message != "" {
				formatter.Printf("       Error: %s\n", e.Message)
			}
			formatter.Printf("       State: %s\n", truncateHash(e.StateHash))
		}
	}
	formatter.Printf("\n")

	formatter.Printf("=== Summary ===\n")
	formatter.Printf("  Applied:    %d\n", result.Summary.Applied)
	formatter.Printf("  Rejected:   %d\n", result.Summary.Rejected)
	formatter.Printf("  Last Seq:   %d\n", result.Summary.LastSeq)
	formatter.Printf("  Final Size: %d\n", result.Summary.FinalSize)
}

// truncateHash shortens a fingerprint for display.
func truncateHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:8] + "..." + h[len(h)-8:]
}
