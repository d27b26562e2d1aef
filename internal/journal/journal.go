package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// Journal is the SQLite command journal: one row per run and one row per
// dispatched command. All writes go through statements prepared at Open.
type Journal struct {
	db *sql.DB

	beginRun    *sql.Stmt
	runOwner    *sql.Stmt
	appendEntry *sql.Stmt
}

// connParams are applied by the go-sqlite3 driver on every new connection.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// migrations bring a journal from user_version i to i+1. schema.sql is the
// version 0 layout; every later change is appended here and never edited.
var migrations = []string{
	// 1: rejection lookups by outcome
	`CREATE INDEX IF NOT EXISTS idx_entries_outcome ON entries(run_id, outcome)`,
	// 2: random bytes an id strategy drew, so uuid runs replay exactly
	`ALTER TABLE entries ADD COLUMN entropy TEXT NOT NULL DEFAULT ''`,
}

// Open opens the journal at path, creating and migrating it as needed.
// Opening an existing journal again is safe. With MemoryPath the journal
// lives as long as the returned value.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?"+connParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One writer at a time, and an in-memory database exists only on the
	// connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	j := &Journal{db: db}
	if err := j.init(); err != nil {
		j.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return j, nil
}

func (j *Journal) init() error {
	if err := j.db.Ping(); err != nil {
		return err
	}
	if err := migrate(j.db); err != nil {
		return err
	}

	var err error
	if j.beginRun, err = j.db.Prepare(`
		INSERT INTO runs (id, collection, def_hash, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs))
		ON CONFLICT(id) DO NOTHING
	`); err != nil {
		return fmt.Errorf("prepare begin run: %w", err)
	}
	if j.runOwner, err = j.db.Prepare(`SELECT collection FROM runs WHERE id = ?`); err != nil {
		return fmt.Errorf("prepare run owner: %w", err)
	}
	if j.appendEntry, err = j.db.Prepare(`
		INSERT INTO entries
		(run_id, seq, kind, type, args, outcome, message, size, state_hash, entropy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`); err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	return nil
}

// migrate creates the base tables and applies every migration past the
// journal's user_version in a single transaction.
func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := tx.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("journal schema version %d is newer than this build (%d)", version, len(migrations))
	}
	for v := version; v < len(migrations); v++ {
		if _, err := tx.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, len(migrations))); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}

// Close releases the prepared statements and the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	for _, stmt := range []*sql.Stmt{j.beginRun, j.runOwner, j.appendEntry} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return j.db.Close()
}
