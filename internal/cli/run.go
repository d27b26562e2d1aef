package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entitystate/internal/harness"
	"github.com/roach88/entitystate/internal/journal"
	"github.com/roach88/entitystate/internal/record"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	RunID    string               `json:"run_id"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
	Final    map[string]any       `json:"final"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <collections-dir> <scenario.yaml>",
		Short: "Execute a scenario and print the final state",
		Long: `Execute a scenario's steps against its collection and print every
dispatched command and the final state.

Collection paths in the scenario are resolved against the collections
directory. Commands are journaled into an in-memory journal unless
--journal names a SQLite file, which is created if it doesn't exist.

Example:
  entityctl run ./collections ./scenarios/todo.yaml
  entityctl run ./collections ./scenarios/todo.yaml --journal ./journal.db --verbose`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (default in-memory)")

	return cmd
}

func runScenarioFile(opts *RunOptions, collectionsDir, scenarioFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	scenario, err := harness.LoadScenarioWithBasePath(scenarioFile, collectionsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Journal != "" {
		logger.Info("opening journal", "path", opts.Journal)
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithJournal(j))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		RunID:    result.RunID,
		Trace:    result.Trace,
		Errors:   result.Errors,
		Final:    result.Final,
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: out, RunID: out.RunID}
		if !out.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_SCENARIO_FAILED",
				Message: fmt.Sprintf("%d check(s) failed", len(out.Errors)),
			}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
	} else if err := outputRunText(formatter, out); err != nil {
		return err
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// outputRunText prints the trace and final state of a run.
func outputRunText(formatter *OutputFormatter, out RunResult) error {
	formatter.Printf("Scenario: %s\n", out.Scenario)
	formatter.Printf("Run: %s\n\n", out.RunID)

	formatter.Printf("=== Trace ===\n")
	for _, ev := range out.Trace {
		formatter.Printf("  [%d] %s %s (size %d)\n", ev.Seq, ev.Command, ev.Outcome, ev.Size)
		if formatter.Verbose && ev.Message != "" {
			formatter.Printf("       %s\n", ev.Message)
		}
	}
	formatter.Printf("\n")

	final, err := record.MarshalCanonical(out.Final)
	if err != nil {
		return fmt.Errorf("render final state: %w", err)
	}
	formatter.Printf("=== Final ===\n  %s\n\n", final)

	if out.Pass {
		formatter.Printf("✓ %s passed\n", out.Scenario)
		return nil
	}
	formatter.Printf("✗ %s failed\n", out.Scenario)
	for _, e := range out.Errors {
		formatter.Printf("  %s\n", e)
	}
	return nil
}
