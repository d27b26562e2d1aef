package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entitystate/internal/journal"
)

func executeTrace(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingJournalFlag(t *testing.T) {
	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--run", "todo-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentJournal(t *testing.T) {
	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--journal", "/nonexistent/path/journal.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceEmptyJournal(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	output, err := executeTrace(t, &RootOptions{Format: "text"}, "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, output, "No runs found in journal.")
}

func TestTraceListRuns(t *testing.T) {
	_, journalPath := journaledRun(t)

	output, err := executeTrace(t, &RootOptions{Format: "text"}, "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, output, "=== Runs ===")
	assert.Contains(t, output, "  todo-run  todo  4 command(s)")
}

func TestTraceListRunsJSON(t *testing.T) {
	_, journalPath := journaledRun(t)

	output, err := executeTrace(t, &RootOptions{Format: "json"}, "--journal", journalPath)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "todo-run", resp.Data.Runs[0].ID)
	assert.Equal(t, "todo", resp.Data.Runs[0].Collection)
	assert.NotEmpty(t, resp.Data.Runs[0].DefHash)
}

func TestTraceWithRun(t *testing.T) {
	_, journalPath := journaledRun(t)

	output, err := executeTrace(t, &RootOptions{Format: "text"}, "--journal", journalPath, "--run", "todo-run")
	require.NoError(t, err)

	assert.Contains(t, output, "Trace for Run: todo-run (todo)")
	assert.Contains(t, output, "=== Commands ===")
	assert.Contains(t, output, "  [1] add ok (size 2)")
	assert.Contains(t, output, "  [2] setActive ok (size 2)")
	assert.Contains(t, output, "  [3] removeActive ok (size 1)")
	assert.Contains(t, output, "  [4] removeActive NO_ACTIVE_ENTITY (size 1)")
	assert.Contains(t, output, "=== Summary ===")
	assert.Contains(t, output, "Applied:    3")
	assert.Contains(t, output, "Rejected:   1")
	assert.Contains(t, output, "Last Seq:   4")
	assert.Contains(t, output, "Final Size: 1")
}

func TestTraceWithRunVerbose(t *testing.T) {
	_, journalPath := journaledRun(t)

	output, err := executeTrace(t, &RootOptions{Format: "text", Verbose: true}, "--journal", journalPath, "--run", "todo-run")
	require.NoError(t, err)

	assert.Contains(t, output, `Args: {"records":[{"title":"a"},{"title":"b"}]}`)
	assert.Contains(t, output, "Error: ")
	assert.Contains(t, output, "State: ")
}

func TestTraceWithRunJSON(t *testing.T) {
	_, journalPath := journaledRun(t)

	output, err := executeTrace(t, &RootOptions{Format: "json"}, "--journal", journalPath, "--run", "todo-run")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "todo-run", resp.RunID)
	require.Len(t, resp.Data.Entries, 4)
	assert.Equal(t, 3, resp.Data.Summary.Applied)
	assert.Equal(t, 1, resp.Data.Summary.Rejected)
	assert.Equal(t, int64(4), resp.Data.Summary.LastSeq)
	assert.Equal(t, resp.Data.Entries[3].StateHash, resp.Data.Summary.FinalHash)
}

func TestTraceWithKindFilter(t *testing.T) {
	_, journalPath := journaledRun(t)

	output, err := executeTrace(t, &RootOptions{Format: "text"},
		"--journal", journalPath, "--run", "todo-run", "--kind", "removeActive")
	require.NoError(t, err)

	assert.Contains(t, output, "[3] removeActive")
	assert.Contains(t, output, "[4] removeActive")
	assert.NotContains(t, output, "[1] add")
	assert.NotContains(t, output, "setActive")
	// The summary still covers the whole run
	assert.Contains(t, output, "Applied:    3")
}

func TestTraceUnknownRun(t *testing.T) {
	_, journalPath := journaledRun(t)

	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--journal", journalPath, "--run", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "nope" not found`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFilterEntries(t *testing.T) {
	entries := []journal.Entry{
		{Seq: 1, Kind: "add"},
		{Seq: 2, Kind: "remove"},
		{Seq: 3, Kind: "add"},
	}

	assert.Len(t, filterEntries(entries, ""), 3)
	filtered := filterEntries(entries, "add")
	require.Len(t, filtered, 2)
	assert.Equal(t, int64(3), filtered[1].Seq)
	assert.Empty(t, filterEntries(entries, "reset"))
}

func TestTruncateHash(t *testing.T) {
	assert.Equal(t, "short", truncateHash("short"))
	assert.Equal(t, "01234567...89abcdef", truncateHash("0123456789abcdef0123456789abcdef"))
}
