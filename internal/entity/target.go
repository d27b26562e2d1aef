package entity

import (
	"slices"
	"strings"
)

type targetKind int

const (
	targetInvalid targetKind = iota
	targetID
	targetIDs
	targetWhere
	targetAll
)

// Target selects the records an update or removal affects.
//
// It is a closed sum: build one with ByID, ByIDs, Where or All. The zero
// Target selects nothing and is rejected with INVALID_TARGET; "all records"
// must be asked for explicitly.
type Target[T any] struct {
	kind targetKind
	ids  []string
	pred func(T) bool
}

// ByID targets the record with the given id.
func ByID[T any](id string) Target[T] {
	return Target[T]{kind: targetID, ids: []string{id}}
}

// ByIDs targets the records with the given ids. Unknown ids are skipped.
func ByIDs[T any](ids ...string) Target[T] {
	return Target[T]{kind: targetIDs, ids: slices.Clone(ids)}
}

// Where targets every record the predicate accepts.
func Where[T any](pred func(T) bool) Target[T] {
	return Target[T]{kind: targetWhere, pred: pred}
}

// All targets every record.
func All[T any]() Target[T] {
	return Target[T]{kind: targetAll}
}

// IsAll reports whether t targets every record.
func (t Target[T]) IsAll() bool {
	return t.kind == targetAll
}

// IDs returns the ids of a ByID or ByIDs target, nil otherwise.
func (t Target[T]) IDs() []string {
	if t.kind != targetID && t.kind != targetIDs {
		return nil
	}
	return slices.Clone(t.ids)
}

// String describes the target for logs.
func (t Target[T]) String() string {
	switch t.kind {
	case targetID:
		return "id(" + t.ids[0] + ")"
	case targetIDs:
		return "ids(" + strings.Join(t.ids, ",") + ")"
	case targetWhere:
		return "where(...)"
	case targetAll:
		return "all"
	default:
		return "invalid"
	}
}

func (t Target[T]) validate() error {
	switch t.kind {
	case targetID, targetIDs, targetAll:
		return nil
	case targetWhere:
		if t.pred == nil {
			return NewInvalidTargetError("nil predicate")
		}
		return nil
	default:
		return NewInvalidTargetError("zero target")
	}
}

// keys returns the keys of the records t selects, in insertion order.
func (t Target[T]) keys(s State[T]) []string {
	var out []string
	switch t.kind {
	case targetAll:
		out = slices.Clone(s.IDs)
	case targetID, targetIDs:
		for _, id := range s.IDs {
			if slices.Contains(t.ids, id) {
				out = append(out, id)
			}
		}
	case targetWhere:
		for _, id := range s.IDs {
			record, ok := s.Entities[id]
			if ok && t.pred(record) {
				out = append(out, id)
			}
		}
	}
	return out
}
