package entity

import (
	"errors"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/roach88/entitystate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateWithIDs(ids ...string) State[todo] {
	entities := make(map[string]todo, len(ids))
	for _, id := range ids {
		entities[id] = todo{ID: id}
	}
	return DefaultState(time.Time{}, WithEntities(entities), WithIDs[todo](ids...))
}

func TestIncrementing_Generate(t *testing.T) {
	g := NewIncrementing(todoField())

	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"empty state", nil, "0"},
		{"sequential", []string{"0", "1", "2"}, "3"},
		{"gaps", []string{"4", "1"}, "5"},
		{"non-numeric skipped", []string{"a", "2", "b"}, "3"},
		{"only non-numeric", []string{"a"}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := g.Generate(todo{ID: "99"}, stateWithIDs(tt.ids...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, id, "record's own id is ignored")
		})
	}
}

func TestIncrementing_GenerateExhausted(t *testing.T) {
	g := NewIncrementing(todoField())

	_, err := g.Generate(todo{}, stateWithIDs("0", "9223372036854775807"))
	require.Error(t, err)
	assert.Equal(t, CodeUnableToGenerateID, CodeOf(err))

	id, err := g.Generate(todo{}, stateWithIDs("9223372036854775806"))
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775807", id)
}

func TestIncrementing_PresentOrGenerate(t *testing.T) {
	g := NewIncrementing(todoField())
	s := stateWithIDs("0")

	id, err := g.PresentOrGenerate(todo{ID: "x"}, s)
	require.NoError(t, err)
	assert.Equal(t, "x", id)

	id, err = g.PresentOrGenerate(todo{}, s)
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestRandom_GenerateIsV4(t *testing.T) {
	g := NewRandom(todoField())

	id, err := g.Generate(todo{}, stateWithIDs())
	require.NoError(t, err)

	u, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), u.Version())
}

func TestRandom_RetriesOnCollision(t *testing.T) {
	first, err := uuid.NewRandomFromReader(testutil.NewCountingReader(1))
	require.NoError(t, err)
	second, err := uuid.NewRandomFromReader(testutil.NewCountingReader(2))
	require.NoError(t, err)

	g := NewRandom(todoField(), WithEntropy(testutil.NewCountingReader(1)))
	id, err := g.Generate(todo{}, stateWithIDs(first.String()))
	require.NoError(t, err)
	assert.Equal(t, second.String(), id)
}

func TestRandom_EntropyFailure(t *testing.T) {
	g := NewRandom(todoField(), WithEntropy(iotest.ErrReader(errors.New("no entropy"))))

	_, err := g.Generate(todo{}, stateWithIDs())
	require.Error(t, err)
	assert.True(t, IsUnableToGenerateID(err))
	assert.Contains(t, err.Error(), "no entropy")
}

func TestFromRecord_Generate(t *testing.T) {
	g := NewFromRecord(todoField())
	s := stateWithIDs("a")

	id, err := g.Generate(todo{ID: "b"}, s)
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	_, err = g.Generate(todo{}, s)
	require.Error(t, err)
	assert.True(t, IsInvalidIDOf(err))
	assert.False(t, IsUnableToGenerateID(err))

	_, err = g.Generate(todo{ID: "a"}, s)
	require.Error(t, err)
	assert.True(t, IsUnableToGenerateID(err))
	assert.True(t, IsDuplicateID(err))
	assert.Contains(t, err.Error(), "The provided ID already exists: a")
}

func TestFromRecord_PresentOrGenerateKeepsExisting(t *testing.T) {
	g := NewFromRecord(todoField())

	id, err := g.PresentOrGenerate(todo{ID: "a"}, stateWithIDs("a"))
	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestIDGenerator_MustIDOf(t *testing.T) {
	g := NewIncrementing(todoField())

	id, err := g.MustIDOf(todo{ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	_, err = g.MustIDOf(todo{})
	assert.True(t, IsInvalidIDOf(err))
	assert.Equal(t, CodeInvalidIDOf, CodeOf(err))
}

func TestNewIDGenerator(t *testing.T) {
	for _, strategy := range Strategies() {
		g, err := NewIDGenerator(strategy, todoField())
		require.NoError(t, err, strategy)
		assert.Equal(t, "id", g.Field().Name())
	}

	_, err := NewIDGenerator(Strategy("sequential"), todoField())
	assert.Error(t, err)
}
