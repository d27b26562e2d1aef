// Package record provides the schemaless record type driven through
// collections by scenario files and the CLI.
//
// A record is an Object: string keys to sealed Values. The package also
// supplies what a collection of Objects needs from its caller: an id field
// accessor (IDField), a merge policy (Merge) and a subset predicate
// (Matches) for targeting records by content.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Object keys iterate in RFC 8785 order (UTF-16 code units)
//   - Canonical JSON is the only serialization used for fingerprints
package record
