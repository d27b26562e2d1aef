package command

import (
	"fmt"
	"maps"

	"github.com/roach88/entitystate/internal/entity"
)

// Handler applies one command kind to a collection state.
type Handler[T any] func(c *entity.Collection[T], s entity.State[T], payload any) (entity.State[T], error)

// Table binds every command kind to its handler.
type Table[T any] map[Kind]Handler[T]

// DefaultTable returns the table binding each kind to the Collection
// operator of the same name.
func DefaultTable[T any]() Table[T] {
	return Table[T]{
		KindAdd: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			records, err := payloadAs[[]T](KindAdd, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.Add(s, records...)
		},
		KindCreateOrReplace: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			records, err := payloadAs[[]T](KindCreateOrReplace, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.CreateOrReplace(s, records...)
		},
		KindUpdate: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			u, err := payloadAs[UpdatePayload[T]](KindUpdate, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.Update(s, u.Target, u.Updater)
		},
		KindUpdateActive: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			updater, err := payloadAs[entity.Updater[T]](KindUpdateActive, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.UpdateActive(s, updater)
		},
		KindRemove: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			if _, ok := p.(AllTarget); ok {
				return c.Remove(s, entity.All[T]())
			}
			target, err := payloadAs[entity.Target[T]](KindRemove, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.Remove(s, target)
		},
		KindRemoveActive: func(c *entity.Collection[T], s entity.State[T], _ any) (entity.State[T], error) {
			return c.RemoveActive(s), nil
		},
		KindSetLoading: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			loading, err := payloadAs[bool](KindSetLoading, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.SetLoading(s, loading), nil
		},
		KindSetError: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			if p == nil {
				return c.SetError(s, nil), nil
			}
			e, err := payloadAs[error](KindSetError, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.SetError(s, e), nil
		},
		KindSetActive: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			id, err := payloadAs[string](KindSetActive, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.SetActive(s, id), nil
		},
		KindClearActive: func(c *entity.Collection[T], s entity.State[T], _ any) (entity.State[T], error) {
			return c.ClearActive(s), nil
		},
		KindReset: func(c *entity.Collection[T], s entity.State[T], _ any) (entity.State[T], error) {
			return c.Reset(s), nil
		},
		KindGoToPage: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			move, err := payloadAs[entity.PageMove](KindGoToPage, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.GoToPage(s, move), nil
		},
		KindSetPageSize: func(c *entity.Collection[T], s entity.State[T], p any) (entity.State[T], error) {
			size, err := payloadAs[int](KindSetPageSize, p)
			if err != nil {
				return entity.State[T]{}, err
			}
			return c.SetPageSize(s, size)
		},
	}
}

func payloadAs[P any](kind Kind, payload any) (P, error) {
	p, ok := payload.(P)
	if !ok {
		var zero P
		return zero, entity.NewInvalidPayloadError(string(kind), payload)
	}
	return p, nil
}

// Dispatcher routes commands to the operators of one collection.
//
// The table is fixed after construction; Dispatcher is safe for concurrent
// use as long as the collection's policies are.
type Dispatcher[T any] struct {
	collection *entity.Collection[T]
	table      Table[T]
}

// DispatcherOption customizes the table before it is verified.
type DispatcherOption[T any] func(Table[T])

// WithHandler replaces the handler bound to kind.
func WithHandler[T any](kind Kind, h Handler[T]) DispatcherOption[T] {
	return func(t Table[T]) {
		t[kind] = h
	}
}

// NewDispatcher builds a dispatcher from DefaultTable and opts.
func NewDispatcher[T any](c *entity.Collection[T], opts ...DispatcherOption[T]) (*Dispatcher[T], error) {
	table := DefaultTable[T]()
	for _, opt := range opts {
		opt(table)
	}
	return NewDispatcherFromTable(c, table)
}

// NewDispatcherFromTable builds a dispatcher from a complete custom table.
//
// Every kind in Kinds() must have a non-nil handler, otherwise construction
// fails with a NO_MATCHING_ACTION_HANDLER error. Kinds outside Kinds() are
// rejected as well.
func NewDispatcherFromTable[T any](c *entity.Collection[T], table Table[T]) (*Dispatcher[T], error) {
	if c == nil {
		return nil, fmt.Errorf("dispatcher requires a collection")
	}
	for _, k := range kinds {
		if table[k] == nil {
			return nil, entity.NewNoMatchingActionHandlerError(string(k))
		}
	}
	for k := range table {
		if _, err := ParseKind(string(k)); err != nil {
			return nil, fmt.Errorf("dispatch table: %w", err)
		}
	}
	return &Dispatcher[T]{collection: c, table: maps.Clone(table)}, nil
}

// Collection returns the collection the dispatcher drives.
func (d *Dispatcher[T]) Collection() *entity.Collection[T] {
	return d.collection
}

// Apply runs cmd against s and returns the next state.
// On error the returned state is the zero value.
func (d *Dispatcher[T]) Apply(s entity.State[T], cmd Command) (entity.State[T], error) {
	h, ok := d.table[cmd.Kind]
	if !ok {
		return entity.State[T]{}, entity.NewNoMatchingActionHandlerError(string(cmd.Kind))
	}
	return h(d.collection, s, cmd.Payload)
}
