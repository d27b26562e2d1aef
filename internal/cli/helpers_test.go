package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/entitystate/internal/harness"
	"github.com/roach88/entitystate/internal/journal"
)

const todoCollections = `
package collections

collection: todo: {
	purpose:     "Todo items numbered in insertion order"
	id_field:    "id"
	id_strategy: "incrementing"
	page_size:   2
}
`

const usersCollections = `
package collections

collection: users: {
	purpose:      "Users keyed by handle"
	id_field:     "handle"
	id_strategy:  "entity"
	strict_merge: true
	seed: [
		{handle: "ada", name: "Ada"},
	]
	active: "ada"
}
`

const todoScenario = `name: todo_basic
description: "Add, activate and remove todos"
collections:
  - collections.cue
collection: todo
run_id: todo-run

steps:
  - command: add
    args:
      records:
        - { title: "a" }
        - { title: "b" }
    expect:
      size: 2
  - command: setActive
    args: { id: "0" }
  - command: removeActive
    expect:
      size: 1
  - command: removeActive
    expect:
      error: NO_ACTIVE_ENTITY

assertions:
  - type: order
    ids: ["1"]
  - type: trace_count
    command: removeActive
    count: 2
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// collectionsDir creates a temp directory holding one collections.cue file.
func collectionsDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "collections.cue", src)
	return dir
}

// journaledRun runs the todo scenario into a journal file and returns the
// collections directory and the journal path.
func journaledRun(t *testing.T) (string, string) {
	t.Helper()
	collections := collectionsDir(t, todoCollections)
	scenarioPath := writeFile(t, t.TempDir(), "todo.yaml", todoScenario)
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	scenario, err := harness.LoadScenarioWithBasePath(scenarioPath, collections)
	require.NoError(t, err)

	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	defer j.Close()

	result, err := harness.Run(scenario, harness.WithJournal(j))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	return collections, journalPath
}
