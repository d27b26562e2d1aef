package command

import (
	"testing"

	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/testutil"
	"github.com/stretchr/testify/require"
)

type todo struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

func newCollection(t *testing.T) *entity.Collection[todo] {
	t.Helper()
	c, err := entity.New(
		entity.NewFromRecord(entity.FieldOf[todo]("title")),
		entity.WithClock[todo](testutil.NewDeterministicClock()),
	)
	require.NoError(t, err)
	return c
}

func newDispatcher(t *testing.T) *Dispatcher[todo] {
	t.Helper()
	d, err := NewDispatcher(newCollection(t))
	require.NoError(t, err)
	return d
}
