package view

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/entitystate/internal/entity"
)

// ActiveID returns the active id, or "" when none is set.
func ActiveID[T any](s entity.State[T]) string {
	return s.Active
}

// Active returns the active record, or nil when no id is active or the
// active id does not resolve to a record.
func Active[T any](s entity.State[T]) *T {
	rec, ok := s.ActiveRecord()
	if !ok {
		return nil
	}
	return &rec
}

// Keys returns the ids in insertion order.
func Keys[T any](s entity.State[T]) []string {
	out := slices.Clone(s.IDs)
	if out == nil {
		out = []string{}
	}
	return out
}

// Entities returns the records in insertion order.
func Entities[T any](s entity.State[T]) []T {
	return recordsOf(s, s.IDs)
}

// NthEntity returns the record at position index of the insertion order,
// or nil when index is out of range.
func NthEntity[T any](s entity.State[T], index int) *T {
	if index < 0 || index >= len(s.IDs) {
		return nil
	}
	rec, ok := s.Entities[s.IDs[index]]
	if !ok {
		return nil
	}
	return &rec
}

// Paginated returns the records of the current page:
// IDs[PageIndex*PageSize : (PageIndex+1)*PageSize], truncated to the ids
// that exist. A page past the end is empty.
func Paginated[T any](s entity.State[T]) []T {
	size := s.PageSize
	if size < 1 {
		size = entity.DefaultPageSize
	}
	page := max(0, s.PageIndex)
	if len(s.IDs) == 0 || page > (len(s.IDs)-1)/size {
		return []T{}
	}
	start := page * size
	end := min(start+size, len(s.IDs))
	return recordsOf(s, s.IDs[start:end])
}

// EntitiesMap returns a copy of the id to record mapping.
func EntitiesMap[T any](s entity.State[T]) map[string]T {
	out := maps.Clone(s.Entities)
	if out == nil {
		out = make(map[string]T)
	}
	return out
}

// Size returns the number of records.
func Size[T any](s entity.State[T]) int {
	return len(s.Entities)
}

// Error returns the informational error, nil when absent.
func Error[T any](s entity.State[T]) error {
	return s.Error
}

// Loading returns the loading flag.
func Loading[T any](s entity.State[T]) bool {
	return s.Loading
}

// Latest returns the most recently inserted record, or nil when empty.
func Latest[T any](s entity.State[T]) *T {
	return NthEntity(s, len(s.IDs)-1)
}

// LatestID returns the most recently inserted id, or "" when empty.
func LatestID[T any](s entity.State[T]) string {
	if len(s.IDs) == 0 {
		return ""
	}
	return s.IDs[len(s.IDs)-1]
}

// LastUpdated returns the time of the last data mutation.
func LastUpdated[T any](s entity.State[T]) time.Time {
	return s.LastUpdated
}

// Age returns how long ago the last data mutation happened, relative to now.
func Age[T any](s entity.State[T], now time.Time) time.Duration {
	return now.Sub(s.LastUpdated)
}

func recordsOf[T any](s entity.State[T], ids []string) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.Entities[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}
