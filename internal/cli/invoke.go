package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entitystate/internal/command"
	"github.com/roach88/entitystate/internal/harness"
	"github.com/roach88/entitystate/internal/journal"
	"github.com/roach88/entitystate/internal/record"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Journal    string
	Collection string
	RunID      string
	Args       string

	// RunIDs allows overriding the run id generator for new runs (for testing).
	// If nil, defaults to command.UUIDv7Generator.
	RunIDs command.RunIDGenerator
}

// InvokeResult is the JSON payload of the invoke command.
type InvokeResult struct {
	RunID    string        `json:"run_id"`
	Replayed int           `json:"replayed"`
	Entry    journal.Entry `json:"entry"`
	Final    any           `json:"final"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	return newInvokeCommand(&InvokeOptions{RootOptions: rootOpts})
}

func newInvokeCommand(opts *InvokeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke <collections-dir> <command>",
		Short: "Dispatch one command and journal it",
		Long: `Dispatch a single command to a collection and journal it.

With --run naming a journaled run, the run is replayed first and the
command continues it. Otherwise a new run is started. The journal file
is created if it doesn't exist.

A rejected command is journaled with its error code and reported with
exit code 1.

Example:
  entityctl invoke ./collections add --journal ./journal.db --collection todo \
    --args '{"records":[{"title":"write docs"}]}'
  entityctl invoke ./collections setActive --journal ./journal.db --collection todo \
    --run 0190c9c4-... --args '{"id":"0"}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeCommand(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "collection to dispatch to (required)")
	_ = cmd.MarkFlagRequired("collection")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to continue (default: start a new run)")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "command arguments as JSON")

	return cmd
}

func invokeCommand(opts *InvokeOptions, collectionsDir, kind string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	if _, err := command.ParseKind(kind); err != nil {
		return WrapExitError(ExitCommandError, "invalid command", err)
	}

	// Validate args JSON
	v, err := record.UnmarshalValue([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}
	args, ok := v.(record.Object)
	if !ok {
		return NewExitError(ExitCommandError, "invalid --args JSON: expected an object")
	}

	loadResult, loadErrors := LoadCollections(collectionsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load collections", loadErrors[0])
	}
	def := loadResult.Find(opts.Collection)
	if def == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("collection %q not defined in %s (have %v)", opts.Collection, collectionsDir, loadResult.Names()))
	}

	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			logger.Error("error closing journal", "error", closeErr)
		}
	}()

	runID := opts.RunID
	if runID == "" {
		gen := opts.RunIDs
		if gen == nil {
			gen = command.UUIDv7Generator{}
		}
		runID = gen.Generate()
	}

	session, replayed, err := harness.OpenSession(ctx, j, def, runID, harness.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to open run %s", runID), err)
	}
	for _, step := range replayed {
		if !step.Match {
			return NewExitError(ExitFailure, fmt.Sprintf("run %s diverged at seq %d during replay", runID, step.Seq))
		}
	}
	logger.Debug("run ready", "run_id", runID, "replayed", len(replayed))

	d, err := session.Dispatch(ctx, kind, args)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to dispatch", err)
	}

	result := InvokeResult{
		RunID:    runID,
		Replayed: len(replayed),
		Entry:    d.Entry,
		Final:    harness.Snapshot(d.Next),
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result, RunID: runID}
		if d.Err != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: d.Entry.Outcome, Message: d.Entry.Message}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
	} else {
		outputInvokeText(formatter, result)
	}

	if d.Err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s rejected", d.Entry.Kind), d.Err)
	}
	return nil
}

// outputInvokeText prints the dispatched entry.
func outputInvokeText(formatter *OutputFormatter, result InvokeResult) {
	e := result.Entry
	status := "✓"
	if !e.OK() {
		status = "✗"
	}

	formatter.Printf("%s [%d] %s %s (size %d)\n", status, e.Seq, e.Kind, e.Outcome, e.Size)
	if e.Message != "" {
		formatter.Printf("  %s\n", e.Message)
	}
	formatter.Printf("Run: %s\n", result.RunID)
	if result.Replayed > 0 {
		formatter.VerboseLog("Replayed %d command(s)", result.Replayed)
	}
}
