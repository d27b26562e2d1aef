package entity

import (
	"maps"
	"slices"
)

// Collection binds the policies of one entity collection (id strategy, merge
// policy, clock) and exposes the state-transition operators.
//
// A Collection holds no state of its own. Every operator is a pure function
// of (current state, payload) that returns the next state; when it fails it
// returns the zero State and an error, and the caller keeps the current one.
type Collection[T any] struct {
	ids             IDGenerator[T]
	merge           MergeFunc[T]
	strictMerge     bool
	clock           Clock
	defaultPageSize int
}

// Option configures a Collection.
type Option[T any] func(*Collection[T])

// WithMerge sets the merge policy used by Update and UpdateActive.
func WithMerge[T any](merge MergeFunc[T]) Option[T] {
	return func(c *Collection[T]) {
		c.merge = merge
	}
}

// WithStrictMerge makes New fail with MERGE_REQUIRED unless WithMerge is
// also given. Use it for record types that cannot be shallow-merged.
func WithStrictMerge[T any]() Option[T] {
	return func(c *Collection[T]) {
		c.strictMerge = true
	}
}

// WithClock sets the clock stamping LastUpdated.
func WithClock[T any](clock Clock) Option[T] {
	return func(c *Collection[T]) {
		c.clock = clock
	}
}

// WithDefaultPageSize sets the page size of default and reset states.
// Values below 1 are ignored.
func WithDefaultPageSize[T any](size int) Option[T] {
	return func(c *Collection[T]) {
		if size >= 1 {
			c.defaultPageSize = size
		}
	}
}

// New creates a Collection using ids for identifier generation.
func New[T any](ids IDGenerator[T], opts ...Option[T]) (*Collection[T], error) {
	c := &Collection[T]{
		ids:             ids,
		clock:           SystemClock{},
		defaultPageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.merge == nil {
		if c.strictMerge {
			return nil, &Error{Code: CodeMergeRequired, Message: "strict merge mode requires a merge function"}
		}
		c.merge = ShallowMerge[T]()
	}
	return c, nil
}

// IDs returns the collection's identifier strategy.
func (c *Collection[T]) IDs() IDGenerator[T] {
	return c.ids
}

// Default returns a fresh default state stamped with the current time.
// Options override fields for seeding and tests.
func (c *Collection[T]) Default(opts ...StateOption[T]) State[T] {
	base := []StateOption[T]{WithPageSize[T](c.defaultPageSize)}
	return DefaultState(c.clock.Now(), append(base, opts...)...)
}

// Add inserts records. Each id comes from the strategy's Generate, evaluated
// against the state including earlier records of the same call, and is
// written into the record. Any failure rejects the whole batch.
func (c *Collection[T]) Add(s State[T], records ...T) (State[T], error) {
	return c.addOrReplace(s, records, c.ids.Generate)
}

// CreateOrReplace inserts records, keeping ids the records already carry.
// A record with an existing id replaces the stored one in place.
func (c *Collection[T]) CreateOrReplace(s State[T], records ...T) (State[T], error) {
	return c.addOrReplace(s, records, c.ids.PresentOrGenerate)
}

func (c *Collection[T]) addOrReplace(s State[T], records []T, idFor func(T, State[T]) (string, error)) (State[T], error) {
	next := s.Clone()
	field := c.ids.Field()

	for _, record := range records {
		id, err := idFor(record, next)
		if err != nil {
			return State[T]{}, err
		}
		if current, ok := field.Get(record); !ok || current != id {
			record, err = field.Set(record, id)
			if err != nil {
				return State[T]{}, NewUnableToGenerateIDError(err)
			}
		}
		next.Entities[id] = record
		if !slices.Contains(next.IDs, id) {
			next.IDs = append(next.IDs, id)
		}
	}

	next.LastUpdated = c.clock.Now()
	return next, nil
}

// Update merges the updater's patch into every record the target selects.
// Ids are read from the records through the id field, not regenerated.
// Unknown ids in a ByID/ByIDs target are skipped.
func (c *Collection[T]) Update(s State[T], target Target[T], updater Updater[T]) (State[T], error) {
	if err := target.validate(); err != nil {
		return State[T]{}, err
	}

	entities := maps.Clone(s.Entities)
	if entities == nil {
		entities = make(map[string]T)
	}
	for _, key := range target.keys(s) {
		record := s.Entities[key]
		id, _ := c.ids.IDOf(record)
		if err := c.updateEntry(entities, id, updater.PatchFor(record)); err != nil {
			return State[T]{}, err
		}
	}

	next := s
	next.Entities = entities
	next.IDs = slices.Clone(s.IDs)
	next.LastUpdated = c.clock.Now()
	return next, nil
}

// UpdateActive merges the updater's patch into the active record.
// It fails with NO_ACTIVE_ENTITY when no record is active.
func (c *Collection[T]) UpdateActive(s State[T], updater Updater[T]) (State[T], error) {
	active, ok := s.ActiveRecord()
	if !ok {
		return State[T]{}, NewNoActiveEntityError("")
	}

	entities := maps.Clone(s.Entities)
	if err := c.updateEntry(entities, s.Active, updater.PatchFor(active)); err != nil {
		return State[T]{}, err
	}

	next := s
	next.Entities = entities
	next.IDs = slices.Clone(s.IDs)
	next.LastUpdated = c.clock.Now()
	return next, nil
}

// updateEntry replaces entities[id] with the merge of its current value and
// patch. entities must already be a private copy.
func (c *Collection[T]) updateEntry(entities map[string]T, id string, patch Patch) error {
	if id == "" {
		return NewUpdateFailedError(NewInvalidIDError(id))
	}
	current, ok := entities[id]
	if !ok {
		return NewUpdateFailedError(NewNoSuchEntityError(id))
	}
	updated, err := c.merge(current, patch)
	if err != nil {
		return NewUpdateFailedError(err)
	}
	entities[id] = updated
	return nil
}

// Remove deletes the records the target selects. All clears entities, ids
// and the active id. Otherwise the active id is cleared only if removed.
func (c *Collection[T]) Remove(s State[T], target Target[T]) (State[T], error) {
	if err := target.validate(); err != nil {
		return State[T]{}, err
	}

	if target.IsAll() {
		next := s
		next.Entities = make(map[string]T)
		next.IDs = []string{}
		next.Active = ""
		next.LastUpdated = c.clock.Now()
		return next, nil
	}

	var keys []string
	if ids := target.IDs(); ids != nil {
		keys = ids
	} else {
		keys = target.keys(s)
	}
	return c.removeKeys(s, keys), nil
}

// RemoveActive removes the active record and clears the active id.
// Without an active id it only bumps LastUpdated.
func (c *Collection[T]) RemoveActive(s State[T]) State[T] {
	var keys []string
	if s.Active != "" {
		keys = []string{s.Active}
	}
	next := c.removeKeys(s, keys)
	next.Active = ""
	return next
}

func (c *Collection[T]) removeKeys(s State[T], keys []string) State[T] {
	next := s.Clone()
	for _, k := range keys {
		delete(next.Entities, k)
	}
	next.IDs = slices.DeleteFunc(next.IDs, func(id string) bool {
		return slices.Contains(keys, id)
	})
	if slices.Contains(keys, s.Active) {
		next.Active = ""
	}
	next.LastUpdated = c.clock.Now()
	return next
}

// Reset returns a fresh default state, discarding s.
func (c *Collection[T]) Reset(State[T]) State[T] {
	return c.Default()
}

// SetLoading sets the loading flag.
func (c *Collection[T]) SetLoading(s State[T], loading bool) State[T] {
	s.Loading = loading
	return s
}

// SetActive sets the active id. The id is not checked against the entities;
// selectors treat a dangling active id as no active record.
func (c *Collection[T]) SetActive(s State[T], id string) State[T] {
	s.Active = id
	return s
}

// ClearActive unsets the active id.
func (c *Collection[T]) ClearActive(s State[T]) State[T] {
	s.Active = ""
	return s
}

// SetError sets the informational error; nil clears it.
func (c *Collection[T]) SetError(s State[T], err error) State[T] {
	s.Error = err
	return s
}

// GoToPage moves the page cursor, keeping it within [0, MaxPageIndex].
func (c *Collection[T]) GoToPage(s State[T], move PageMove) State[T] {
	s.PageIndex = move.resolve(s.PageIndex, s.MaxPageIndex())
	return s
}

// SetPageSize sets the page size. PageIndex is left as is, so the current
// page may be partial or empty until the next navigation.
func (c *Collection[T]) SetPageSize(s State[T], size int) (State[T], error) {
	if size < 1 {
		return State[T]{}, NewInvalidPageSizeError(size)
	}
	s.PageSize = size
	return s, nil
}
