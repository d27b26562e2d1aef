package command

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/entitystate/internal/entity"
)

// Event describes one dispatch. Prev is the state before the command, Next
// the state installed after it. When Err is set Next equals Prev.
type Event[T any] struct {
	RunID   string
	Seq     int64
	Type    string
	Command Command
	Prev    entity.State[T]
	Next    entity.State[T]
	Err     error
}

// Observer is notified after every dispatch, in seq order.
// Observers run under the store's writer lock and must not call back into
// the store.
type Observer[T any] func(Event[T])

// Store hosts the state of one collection and applies commands to it.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine; dispatches are serialized
//   - State(): safe from any goroutine; returns the last installed state
type Store[T any] struct {
	mu         sync.RWMutex
	path       string
	dispatcher *Dispatcher[T]
	state      entity.State[T]
	clock      *Clock
	runID      string
	logger     *slog.Logger
	observers  []Observer[T]

	initial *entity.State[T]
	runIDs  RunIDGenerator
}

// StoreOption configures a Store.
type StoreOption[T any] func(*Store[T])

// WithInitialState seeds the store instead of the collection default.
func WithInitialState[T any](s entity.State[T]) StoreOption[T] {
	return func(st *Store[T]) {
		st.initial = &s
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger[T any](logger *slog.Logger) StoreOption[T] {
	return func(st *Store[T]) {
		st.logger = logger
	}
}

// WithClock sets the seq clock, for instance to continue a journaled run.
func WithClock[T any](clock *Clock) StoreOption[T] {
	return func(st *Store[T]) {
		st.clock = clock
	}
}

// WithRunIDGenerator sets the source of the store's run id.
// Defaults to UUIDv7Generator.
func WithRunIDGenerator[T any](gen RunIDGenerator) StoreOption[T] {
	return func(st *Store[T]) {
		st.runIDs = gen
	}
}

// WithObserver registers an observer.
func WithObserver[T any](o Observer[T]) StoreOption[T] {
	return func(st *Store[T]) {
		st.observers = append(st.observers, o)
	}
}

// NewStore creates a store for the collection at path.
func NewStore[T any](path string, d *Dispatcher[T], opts ...StoreOption[T]) *Store[T] {
	st := &Store[T]{
		path:       path,
		dispatcher: d,
		clock:      NewClock(),
		logger:     slog.Default(),
		runIDs:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(st)
	}

	if st.initial != nil {
		st.state = *st.initial
		st.initial = nil
	} else {
		st.state = d.Collection().Default()
	}
	st.runID = st.runIDs.Generate()
	return st
}

// Path returns the state path the store is registered under.
func (st *Store[T]) Path() string {
	return st.path
}

// RunID returns the correlation id of this store's dispatch session.
func (st *Store[T]) RunID() string {
	return st.runID
}

// Seq returns the seq of the last dispatch.
func (st *Store[T]) Seq() int64 {
	return st.clock.Current()
}

// State returns the current state.
func (st *Store[T]) State() entity.State[T] {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}

// Dispatch applies cmd and installs the resulting state.
//
// On error the current state is kept and returned together with the error.
// A cancelled context is reported before the command is applied.
func (st *Store[T]) Dispatch(ctx context.Context, cmd Command) (entity.State[T], error) {
	if err := ctx.Err(); err != nil {
		return st.State(), err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	prev := st.state
	seq := st.clock.Next()
	typ := cmd.Type(st.path)

	next, err := st.dispatcher.Apply(prev, cmd)
	if err != nil {
		st.logger.Warn("command rejected",
			"type", typ,
			"seq", seq,
			"run_id", st.runID,
			"code", entity.CodeOf(err),
			"error", err)
		next = prev
	} else {
		st.state = next
		st.logger.Debug("command applied",
			"type", typ,
			"seq", seq,
			"run_id", st.runID,
			"size", next.Size())
	}

	ev := Event[T]{
		RunID:   st.runID,
		Seq:     seq,
		Type:    typ,
		Command: cmd,
		Prev:    prev,
		Next:    next,
		Err:     err,
	}
	for _, o := range st.observers {
		o(ev)
	}

	return next, err
}

// DispatchAll dispatches cmds in order and stops at the first error.
func (st *Store[T]) DispatchAll(ctx context.Context, cmds ...Command) (entity.State[T], error) {
	for _, cmd := range cmds {
		if _, err := st.Dispatch(ctx, cmd); err != nil {
			return st.State(), err
		}
	}
	return st.State(), nil
}
