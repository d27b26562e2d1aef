package entity

import (
	"maps"
	"slices"
	"sort"
	"time"
)

// DefaultPageSize is the page size of a freshly constructed state.
const DefaultPageSize = 10

// State is one immutable snapshot of a collection.
//
// States are passed and returned by value. Operators copy Entities and IDs
// before changing them, so a State obtained earlier never changes underneath
// its holder.
type State[T any] struct {
	// Entities maps id to record.
	Entities map[string]T

	// IDs lists the keys of Entities in insertion order.
	IDs []string

	// Active is the id of the selected record, or "" when none is selected.
	Active string

	// Loading is an informational flag set by SetLoading.
	Loading bool

	// Error is an informational error set by SetError; nil when absent.
	Error error

	// PageSize is the number of records per page (at least 1).
	PageSize int

	// PageIndex is the zero-based page cursor.
	PageIndex int

	// LastUpdated is the time of the last data mutation.
	LastUpdated time.Time
}

// StateOption overrides a field of a default state.
type StateOption[T any] func(*State[T])

// WithEntities seeds the entities map. The map is copied.
// Unless WithIDs is also given, IDs is derived from the sorted keys.
func WithEntities[T any](entities map[string]T) StateOption[T] {
	return func(s *State[T]) {
		s.Entities = maps.Clone(entities)
		if s.Entities == nil {
			s.Entities = make(map[string]T)
		}
		if len(s.IDs) == 0 {
			s.IDs = sortedKeys(s.Entities)
		}
	}
}

// WithIDs seeds the insertion order. The slice is copied.
func WithIDs[T any](ids ...string) StateOption[T] {
	return func(s *State[T]) {
		s.IDs = slices.Clone(ids)
	}
}

// WithActive seeds the active id.
func WithActive[T any](id string) StateOption[T] {
	return func(s *State[T]) {
		s.Active = id
	}
}

// WithLoading seeds the loading flag.
func WithLoading[T any](loading bool) StateOption[T] {
	return func(s *State[T]) {
		s.Loading = loading
	}
}

// WithError seeds the error value.
func WithError[T any](err error) StateOption[T] {
	return func(s *State[T]) {
		s.Error = err
	}
}

// WithPageSize seeds the page size. Values below 1 are ignored.
func WithPageSize[T any](size int) StateOption[T] {
	return func(s *State[T]) {
		if size >= 1 {
			s.PageSize = size
		}
	}
}

// WithPageIndex seeds the page cursor.
func WithPageIndex[T any](index int) StateOption[T] {
	return func(s *State[T]) {
		s.PageIndex = index
	}
}

// WithLastUpdated seeds the timestamp.
func WithLastUpdated[T any](t time.Time) StateOption[T] {
	return func(s *State[T]) {
		s.LastUpdated = t
	}
}

// DefaultState returns a fresh default state: no entities, not loading,
// no error, no active record, page size 10, page 0, stamped with now.
// Options are applied in order on top of the defaults.
func DefaultState[T any](now time.Time, opts ...StateOption[T]) State[T] {
	s := State[T]{
		Entities:    make(map[string]T),
		IDs:         []string{},
		PageSize:    DefaultPageSize,
		PageIndex:   0,
		LastUpdated: now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Clone returns a copy of s whose Entities map and IDs slice are not shared
// with s. Records themselves are copied by value.
func (s State[T]) Clone() State[T] {
	c := s
	c.Entities = maps.Clone(s.Entities)
	if c.Entities == nil {
		c.Entities = make(map[string]T)
	}
	c.IDs = slices.Clone(s.IDs)
	if c.IDs == nil {
		c.IDs = []string{}
	}
	return c
}

// Size returns the number of records.
func (s State[T]) Size() int {
	return len(s.Entities)
}

// Get returns the record stored under id.
func (s State[T]) Get(id string) (T, bool) {
	v, ok := s.Entities[id]
	return v, ok
}

// HasID reports whether id is part of the insertion order.
func (s State[T]) HasID(id string) bool {
	return slices.Contains(s.IDs, id)
}

// ActiveRecord returns the active record. It reports false if no id is active
// or the active id does not resolve to a record.
func (s State[T]) ActiveRecord() (T, bool) {
	if s.Active == "" {
		var zero T
		return zero, false
	}
	return s.Get(s.Active)
}

// MaxPageIndex returns floor(len(IDs) / PageSize), the upper bound the
// pagination operators keep PageIndex within.
func (s State[T]) MaxPageIndex() int {
	size := s.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	return len(s.IDs) / size
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
