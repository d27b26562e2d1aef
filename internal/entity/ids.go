package entity

import (
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator is the identifier strategy of a collection.
//
// Generate must return an id that is not in the given state, or fail with an
// UNABLE_TO_GENERATE_ID error. PresentOrGenerate keeps an id the record
// already carries and only generates when it is absent.
type IDGenerator[T any] interface {
	// Field returns the id field accessor the strategy is bound to.
	Field() Field[T]

	// IDOf returns the id carried by record, tolerating partial records.
	IDOf(record T) (string, bool)

	// MustIDOf is IDOf failing with INVALID_ID_OF when the id is absent.
	MustIDOf(record T) (string, error)

	// InState reports whether id is in the state's insertion order.
	InState(id string, s State[T]) bool

	// Generate produces a fresh id for record.
	Generate(record T, s State[T]) (string, error)

	// PresentOrGenerate returns the record's id if present, else Generate.
	PresentOrGenerate(record T, s State[T]) (string, error)
}

// Strategy names an identifier strategy in configuration.
type Strategy string

const (
	// StrategyIncrementing generates max(numeric ids)+1.
	StrategyIncrementing Strategy = "incrementing"
	// StrategyUUID generates random version-4 UUIDs.
	StrategyUUID Strategy = "uuid"
	// StrategyFromRecord takes the id from the record and rejects duplicates.
	StrategyFromRecord Strategy = "entity"
)

// Strategies lists every known strategy name.
func Strategies() []Strategy {
	return []Strategy{StrategyIncrementing, StrategyUUID, StrategyFromRecord}
}

// NewIDGenerator returns the generator for the named strategy.
// opts apply to the uuid strategy only.
func NewIDGenerator[T any](strategy Strategy, field Field[T], opts ...RandomOption) (IDGenerator[T], error) {
	switch strategy {
	case StrategyIncrementing:
		return NewIncrementing(field), nil
	case StrategyUUID:
		return NewRandom(field, opts...), nil
	case StrategyFromRecord:
		return NewFromRecord(field), nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}

// idBase implements the strategy-independent half of IDGenerator.
type idBase[T any] struct {
	field Field[T]
}

func (b idBase[T]) Field() Field[T] {
	return b.field
}

func (b idBase[T]) IDOf(record T) (string, bool) {
	return b.field.Get(record)
}

func (b idBase[T]) MustIDOf(record T) (string, error) {
	id, ok := b.field.Get(record)
	if !ok {
		return "", NewInvalidIDOfError(b.field.Name())
	}
	return id, nil
}

func (b idBase[T]) InState(id string, s State[T]) bool {
	return s.HasID(id)
}

func presentOrGenerate[T any](g IDGenerator[T], record T, s State[T]) (string, error) {
	if id, ok := g.IDOf(record); ok {
		return id, nil
	}
	return g.Generate(record, s)
}

// Incrementing numbers records 0, 1, 2, ... It ignores the record's own id.
type Incrementing[T any] struct {
	idBase[T]
}

// NewIncrementing creates an incrementing strategy bound to field.
func NewIncrementing[T any](field Field[T]) *Incrementing[T] {
	return &Incrementing[T]{idBase[T]{field: field}}
}

// Generate returns max(-1, numeric ids in state)+1 in base 10.
// Ids that do not parse as integers are skipped. It fails once the largest
// id is math.MaxInt64.
func (g *Incrementing[T]) Generate(_ T, s State[T]) (string, error) {
	maxID := int64(-1)
	for _, id := range s.IDs {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		if n > maxID {
			maxID = n
		}
	}
	if maxID == math.MaxInt64 {
		return "", NewUnableToGenerateIDError(fmt.Errorf("id %d is the largest incrementing id", maxID))
	}
	return strconv.FormatInt(maxID+1, 10), nil
}

// PresentOrGenerate returns the record's id if present, else Generate.
func (g *Incrementing[T]) PresentOrGenerate(record T, s State[T]) (string, error) {
	return presentOrGenerate[T](g, record, s)
}

// Random draws version-4 UUIDs and retries while the draw is already in
// state. The retry loop has no upper bound; with a broken entropy source
// that keeps repeating an existing id it does not terminate.
type Random[T any] struct {
	idBase[T]
	entropy io.Reader
}

// RandomOption configures a Random strategy.
type RandomOption func(*randomConfig)

type randomConfig struct {
	entropy io.Reader
}

// WithEntropy replaces crypto/rand as the source of random bits.
func WithEntropy(r io.Reader) RandomOption {
	return func(c *randomConfig) {
		c.entropy = r
	}
}

// NewRandom creates a UUID strategy bound to field.
func NewRandom[T any](field Field[T], opts ...RandomOption) *Random[T] {
	cfg := randomConfig{entropy: rand.Reader}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Random[T]{idBase: idBase[T]{field: field}, entropy: cfg.entropy}
}

// Generate returns a UUID string not present in state.
func (g *Random[T]) Generate(_ T, s State[T]) (string, error) {
	for {
		u, err := uuid.NewRandomFromReader(g.entropy)
		if err != nil {
			return "", NewUnableToGenerateIDError(err)
		}
		id := u.String()
		if !g.InState(id, s) {
			return id, nil
		}
	}
}

// PresentOrGenerate returns the record's id if present, else Generate.
func (g *Random[T]) PresentOrGenerate(record T, s State[T]) (string, error) {
	return presentOrGenerate[T](g, record, s)
}

// FromRecord uses the id the record carries. Generate fails when the record
// has no id (INVALID_ID_OF) or the id is taken (UNABLE_TO_GENERATE_ID caused
// by DUPLICATE_ID), which is what lets Add reject duplicates.
type FromRecord[T any] struct {
	idBase[T]
}

// NewFromRecord creates a record-supplied id strategy bound to field.
func NewFromRecord[T any](field Field[T]) *FromRecord[T] {
	return &FromRecord[T]{idBase[T]{field: field}}
}

// Generate returns the record's own id if it is not yet in state.
func (g *FromRecord[T]) Generate(record T, s State[T]) (string, error) {
	id, err := g.MustIDOf(record)
	if err != nil {
		return "", err
	}
	if g.InState(id, s) {
		return "", NewDuplicateIDError(id)
	}
	return id, nil
}

// PresentOrGenerate returns the record's id if present, else Generate.
func (g *FromRecord[T]) PresentOrGenerate(record T, s State[T]) (string, error) {
	return presentOrGenerate[T](g, record, s)
}
