package entity

import (
	"testing"

	"github.com/roach88/entitystate/internal/testutil"
	"github.com/stretchr/testify/require"
)

type todo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Done     bool   `json:"done"`
	Priority int
}

func newTodos(t *testing.T, ids IDGenerator[todo], opts ...Option[todo]) (*Collection[todo], *testutil.DeterministicClock) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	opts = append([]Option[todo]{WithClock[todo](clock)}, opts...)
	c, err := New(ids, opts...)
	require.NoError(t, err)
	return c, clock
}

func todoField() Field[todo] {
	return FieldOf[todo]("id")
}

// seeded returns a state holding the given todos under their own ids.
func seeded(c *Collection[todo], todos ...todo) State[todo] {
	entities := make(map[string]todo, len(todos))
	ids := make([]string, 0, len(todos))
	for _, td := range todos {
		entities[td.ID] = td
		ids = append(ids, td.ID)
	}
	return c.Default(WithEntities(entities), WithIDs[todo](ids...))
}
