// Package entity implements the normalized entity-collection engine.
//
// A collection is held as a State value: records keyed by id, the ids in
// insertion order, an optional active id, informational loading/error flags,
// a pagination cursor and the time of the last data mutation.
//
// ARCHITECTURE:
//
// Pure Transitions:
// Every operator on Collection takes the current State and a payload and
// returns the next State. Input maps and slices are never written to, so any
// holder of an older State keeps seeing exactly what it saw before. On error
// the operator returns the zero State and the caller keeps the old one.
//
// Pluggable Policies:
//   - IDGenerator decides how an id is obtained for a new record
//     (Incrementing, Random, FromRecord).
//   - MergeFunc decides how a current record is combined with a Patch
//     (ShallowMerge by default).
//
// INVARIANTS:
//   - IDs holds exactly the keys of Entities, without duplicates
//   - removing the active record clears Active (SetActive does not check
//     that the id exists; selectors treat a dangling id as no active record)
//   - LastUpdated moves only on data mutations (add, replace, update, remove)
//   - PageSize is at least 1
//
// The engine never retains state between calls and never blocks. Serializing installs of the next state is the job of
// the host (see package command).
package entity
