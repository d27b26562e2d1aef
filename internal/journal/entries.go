package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// OutcomeOK marks an entry whose command was applied.
// Rejected commands carry the error code instead.
const OutcomeOK = "ok"

// Run is one journaled store lifetime.
type Run struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	DefHash    string `json:"def_hash"`
	Entries    int    `json:"entries"`
}

// Entry is one dispatched command.
type Entry struct {
	RunID     string `json:"run_id"`
	Seq       int64  `json:"seq"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Args      string `json:"args"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
	Size      int    `json:"size"`
	StateHash string `json:"state_hash"`
	// Entropy is the hex encoding of the random bytes the id strategy
	// drew while applying the command. Empty for strategies that draw none.
	Entropy   string `json:"entropy,omitempty"`
}

// OK reports whether the command was applied.
func (e Entry) OK() bool {
	return e.Outcome == OutcomeOK
}

// Summary describes a run's entries.
type Summary struct {
	Run       Run    `json:"run"`
	Applied   int    `json:"applied"`
	Rejected  int    `json:"rejected"`
	LastSeq   int64  `json:"last_seq"`
	FinalSize int    `json:"final_size"`
	FinalHash string `json:"final_hash"`
}

// ErrRunNotFound is returned when a run id has no journal record.
var ErrRunNotFound = errors.New("run not found")

// BeginRun records the start of a run.
// Uses ON CONFLICT(id) DO NOTHING for idempotency. Reusing a run id for a
// different collection is an error.
func (j *Journal) BeginRun(ctx context.Context, runID, collection, defHash string) error {
	_, err := j.beginRun.ExecContext(ctx, runID, collection, defHash)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	var existing string
	if err := j.runOwner.QueryRowContext(ctx, runID).Scan(&existing); err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	if existing != collection {
		return fmt.Errorf("begin run: run %q already journaled for collection %q", runID, existing)
	}
	return nil
}

// Append inserts an entry.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency - duplicate
// writes are silently ignored. The run must have been begun.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	_, err := j.appendEntry.ExecContext(ctx,
		e.RunID,
		e.Seq,
		e.Kind,
		e.Type,
		e.Args,
		e.Outcome,
		e.Message,
		e.Size,
		e.StateHash,
		e.Entropy,
	)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// Entries returns a run's entries ordered by seq.
// Returns an empty slice (not nil) if the run has none.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, type, args, outcome, message, size, state_hash, entropy
		FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Kind, &e.Type, &e.Args, &e.Outcome, &e.Message, &e.Size, &e.StateHash, &e.Entropy); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// CountEntries returns how many entries of kind a run has.
// An empty kind counts every entry.
func (j *Journal) CountEntries(ctx context.Context, runID, kind string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries
		WHERE run_id = ? AND (? = '' OR kind = ?)
	`, runID, kind, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Runs returns every run in the order they were begun.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.collection, r.def_hash, COUNT(e.seq)
		FROM runs r
		LEFT JOIN entries e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Collection, &r.DefHash, &r.Entries); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by id.
// Returns ErrRunNotFound if it was never begun.
func (j *Journal) ReadRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	err := j.db.QueryRowContext(ctx, `
		SELECT r.id, r.collection, r.def_hash,
		       (SELECT COUNT(*) FROM entries e WHERE e.run_id = r.id)
		FROM runs r
		WHERE r.id = ?
	`, runID).Scan(&r.ID, &r.Collection, &r.DefHash, &r.Entries)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %q: %w", runID, err)
	}
	return r, nil
}

// Summarize counts a run's applied and rejected commands and reports the
// size and fingerprint after its last entry.
func (j *Journal) Summarize(ctx context.Context, runID string) (Summary, error) {
	run, err := j.ReadRun(ctx, runID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}

	entries, err := j.Entries(ctx, runID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}

	sum := Summary{Run: run}
	for _, e := range entries {
		if e.OK() {
			sum.Applied++
		} else {
			sum.Rejected++
		}
		sum.LastSeq = e.Seq
		sum.FinalSize = e.Size
		sum.FinalHash = e.StateHash
	}
	return sum, nil
}
