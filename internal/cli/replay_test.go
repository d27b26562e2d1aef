package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entitystate/internal/journal"
)

func executeReplay(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplayMissingJournalFlag(t *testing.T) {
	collections := collectionsDir(t, todoCollections)

	_, err := executeReplay(t, &RootOptions{Format: "text"}, collections)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayNonExistentJournal(t *testing.T) {
	collections := collectionsDir(t, todoCollections)

	_, err := executeReplay(t, &RootOptions{Format: "text"}, collections, "--journal", "/nonexistent/journal.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayEmptyJournal(t *testing.T) {
	collections := collectionsDir(t, todoCollections)
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	output, err := executeReplay(t, &RootOptions{Format: "text"}, collections, "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, output, "No runs found in journal.")
}

func TestReplayDeterministic(t *testing.T) {
	collections, journalPath := journaledRun(t)

	output, err := executeReplay(t, &RootOptions{Format: "text"}, collections, "--journal", journalPath)
	require.NoError(t, err)

	assert.Contains(t, output, "Replay Summary: 1 run(s)")
	assert.Contains(t, output, "✓ Run: todo-run (todo)")
	assert.Contains(t, output, "Commands: 4, final size 1")
	assert.Contains(t, output, "✓ All runs verified deterministic")
}

func TestReplayDeterministicJSON(t *testing.T) {
	collections, journalPath := journaledRun(t)

	output, err := executeReplay(t, &RootOptions{Format: "json"}, collections, "--journal", journalPath, "--run", "todo-run")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, 4, resp.Data.Runs[0].Entries)
	assert.Equal(t, 1, resp.Data.Runs[0].FinalSize)
	assert.Empty(t, resp.Data.Runs[0].Diverged)
}

func TestReplayDetectsDivergence(t *testing.T) {
	collections, journalPath := journaledRun(t)

	// Journal a reset whose recorded fingerprint cannot be reproduced
	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), journal.Entry{
		RunID:     "todo-run",
		Seq:       5,
		Kind:      "reset",
		Type:      "[todo] reset",
		Args:      "{}",
		Outcome:   journal.OutcomeOK,
		StateHash: "forged",
	}))
	require.NoError(t, j.Close())

	output, err := executeReplay(t, &RootOptions{Format: "text"}, collections, "--journal", journalPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "determinism verification failed")

	assert.Contains(t, output, "✗ Run: todo-run (todo)")
	assert.Contains(t, output, "Diverged at [5] [todo] reset: ok")
	assert.Contains(t, output, "✗ Determinism verification failed")
}

func TestReplayDivergenceJSON(t *testing.T) {
	collections, journalPath := journaledRun(t)

	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), journal.Entry{
		RunID:     "todo-run",
		Seq:       5,
		Kind:      "reset",
		Type:      "[todo] reset",
		Args:      "{}",
		Outcome:   journal.OutcomeOK,
		StateHash: "forged",
	}))
	require.NoError(t, j.Close())

	output, err := executeReplay(t, &RootOptions{Format: "json"}, collections, "--journal", journalPath)
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_DETERMINISM", resp.Error.Code)
	require.Len(t, resp.Data.Runs, 1)
	require.Len(t, resp.Data.Runs[0].Diverged, 1)
	assert.Equal(t, "forged", resp.Data.Runs[0].Diverged[0].WantHash)
}

func TestReplayDefinitionChanged(t *testing.T) {
	_, journalPath := journaledRun(t)
	changed := collectionsDir(t, `
package collections

collection: todo: {
	purpose:     "Todo items numbered in insertion order"
	id_field:    "id"
	id_strategy: "incrementing"
	page_size:   3
}
`)

	output, err := executeReplay(t, &RootOptions{Format: "text"}, changed, "--journal", journalPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Run: todo-run (todo)")
	assert.Contains(t, output, "Skipped: definition changed since the run was journaled")
}

func TestReplaySkipsUndefinedCollections(t *testing.T) {
	_, journalPath := journaledRun(t)
	others := collectionsDir(t, usersCollections)

	output, err := executeReplay(t, &RootOptions{Format: "text"}, others, "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, output, `Skipped: collection "todo" is not defined`)
	assert.Contains(t, output, "✓ All runs verified deterministic")
}

func TestReplayUnknownRun(t *testing.T) {
	collections, journalPath := journaledRun(t)

	_, err := executeReplay(t, &RootOptions{Format: "text"}, collections, "--journal", journalPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to read run nope")
}

func TestReplayHelpText(t *testing.T) {
	output, err := executeReplay(t, &RootOptions{Format: "text"}, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "fingerprint")
	assert.Contains(t, output, "--journal")
	assert.Contains(t, output, "--run")
	assert.Contains(t, output, "Exit codes")
}
