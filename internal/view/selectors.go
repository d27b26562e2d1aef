package view

import (
	"time"

	"github.com/roach88/entitystate/internal/entity"
)

// Selector derives a view of type V from a state tree.
type Selector[V any] func(tree Tree) V

// Option configures Selectors.
type Option func(*config)

type config struct {
	clock entity.Clock
}

// WithClock sets the clock Age measures against.
func WithClock(clock entity.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// Selectors builds selectors for the collection stored at one path.
type Selectors[T any] struct {
	path  string
	clock entity.Clock
}

// For returns the selector factory for the collection of T stored at path.
func For[T any](path string, opts ...Option) Selectors[T] {
	cfg := config{clock: entity.SystemClock{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return Selectors[T]{path: path, clock: cfg.clock}
}

// Path returns the bound state path.
func (s Selectors[T]) Path() string {
	return s.path
}

// State resolves the collection state in tree. It reports false if the path
// does not lead to a collection of T.
func (s Selectors[T]) State(tree Tree) (entity.State[T], bool) {
	return resolve[T](tree, s.path)
}

func bind[T, V any](s Selectors[T], fn func(entity.State[T]) V) Selector[V] {
	return func(tree Tree) V {
		st, _ := s.State(tree)
		return fn(st)
	}
}

// ActiveID selects the active id.
func (s Selectors[T]) ActiveID() Selector[string] {
	return bind(s, ActiveID[T])
}

// Active selects the active record.
func (s Selectors[T]) Active() Selector[*T] {
	return bind(s, Active[T])
}

// Keys selects the ids in insertion order.
func (s Selectors[T]) Keys() Selector[[]string] {
	return bind(s, Keys[T])
}

// Entities selects the records in insertion order.
func (s Selectors[T]) Entities() Selector[[]T] {
	return bind(s, Entities[T])
}

// Paginated selects the records of the current page.
func (s Selectors[T]) Paginated() Selector[[]T] {
	return bind(s, Paginated[T])
}

// EntitiesMap selects a copy of the id to record mapping.
func (s Selectors[T]) EntitiesMap() Selector[map[string]T] {
	return bind(s, EntitiesMap[T])
}

// Size selects the number of records.
func (s Selectors[T]) Size() Selector[int] {
	return bind(s, Size[T])
}

// Error selects the informational error.
func (s Selectors[T]) Error() Selector[error] {
	return bind(s, Error[T])
}

// Loading selects the loading flag.
func (s Selectors[T]) Loading() Selector[bool] {
	return bind(s, Loading[T])
}

// Latest selects the most recently inserted record.
func (s Selectors[T]) Latest() Selector[*T] {
	return bind(s, Latest[T])
}

// LatestID selects the most recently inserted id.
func (s Selectors[T]) LatestID() Selector[string] {
	return bind(s, LatestID[T])
}

// LastUpdated selects the time of the last data mutation.
func (s Selectors[T]) LastUpdated() Selector[time.Time] {
	return bind(s, LastUpdated[T])
}

// NthEntity selects the record at position index of the insertion order.
func (s Selectors[T]) NthEntity(index int) Selector[*T] {
	return bind(s, func(st entity.State[T]) *T {
		return NthEntity(st, index)
	})
}

// Age selects the time since the last data mutation, measured with the
// configured clock at the moment the selector runs.
func (s Selectors[T]) Age() Selector[time.Duration] {
	return bind(s, func(st entity.State[T]) time.Duration {
		return Age(st, s.clock.Now())
	})
}
