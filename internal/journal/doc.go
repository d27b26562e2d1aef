// Package journal provides a SQLite-backed append-only log of the commands
// dispatched to a collection store.
//
// The journal records what happened, not the collection itself: each entry
// holds the command kind, its canonical arguments, the outcome and a
// fingerprint of the resulting state. Collection state is never persisted.
//
// # Ordering
//
//   - Entries are keyed by (run_id, seq), where seq is the store's logical
//     clock. Appending the same key twice is a no-op.
//   - Queries order by seq ASC, and runs by their insertion seq, so reads
//     are identical across replays regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
