package view

import (
	"testing"
	"time"

	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveStore struct {
	state entity.State[todo]
}

func (l *liveStore) State() entity.State[todo] {
	return l.state
}

func TestLookup(t *testing.T) {
	tree := Tree{
		"app": map[string]any{
			"todos": "leaf",
			"nested": Tree{
				"deep": 1,
			},
		},
	}

	v, ok := Lookup(tree, "app.todos")
	assert.True(t, ok)
	assert.Equal(t, "leaf", v)

	v, ok = Lookup(tree, "app.nested.deep")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = Lookup(tree, "app.missing.deep")
	assert.False(t, ok)

	_, ok = Lookup(tree, "app.todos.more")
	assert.False(t, ok, "cannot descend into a leaf")

	v, ok = Lookup(tree, "")
	assert.True(t, ok)
	assert.Equal(t, tree, v)
}

func TestFor_ResolvesLeafKinds(t *testing.T) {
	c := newCollection(t)
	s := lettered(t, c, "ab")

	tests := []struct {
		name string
		leaf any
	}{
		{"value", s},
		{"pointer", &s},
		{"live store", &liveStore{state: s}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Tree{"app": Tree{"todos": tt.leaf}}
			sel := For[todo]("app.todos")

			assert.Equal(t, "app.todos", sel.Path())
			assert.Equal(t, 2, sel.Size()(tree))
			assert.Equal(t, []string{"a", "b"}, sel.Keys()(tree))
			assert.Equal(t, "b", sel.LatestID()(tree))
		})
	}
}

func TestFor_MissingPathIsEmpty(t *testing.T) {
	sel := For[todo]("nowhere.todos")
	tree := Tree{"app": Tree{}}

	_, ok := sel.State(tree)
	assert.False(t, ok)
	assert.Equal(t, 0, sel.Size()(tree))
	assert.Equal(t, []todo{}, sel.Entities()(tree))
	assert.Nil(t, sel.Active()(tree))
	assert.Nil(t, sel.NthEntity(0)(tree))
	assert.Equal(t, "", sel.ActiveID()(tree))
	assert.Empty(t, sel.Paginated()(tree))
	assert.Empty(t, sel.EntitiesMap()(tree))
	assert.Nil(t, sel.Latest()(tree))
	assert.NoError(t, sel.Error()(tree))
	assert.False(t, sel.Loading()(tree))
}

func TestFor_WrongTypeIsEmpty(t *testing.T) {
	tree := Tree{"todos": entity.State[string]{Entities: map[string]string{"a": "a"}, IDs: []string{"a"}}}
	assert.Equal(t, 0, For[todo]("todos").Size()(tree))
}

func TestFor_LiveStoreSeesNewState(t *testing.T) {
	c := newCollection(t)
	store := &liveStore{state: c.Default()}
	tree := Tree{"todos": store}
	size := For[todo]("todos").Size()

	assert.Equal(t, 0, size(tree))
	next, err := c.Add(store.state, todo{Title: "a"})
	require.NoError(t, err)
	store.state = next
	assert.Equal(t, 1, size(tree))
}

func TestFor_AgeUsesClock(t *testing.T) {
	stamp := testutil.Epoch
	s := entity.DefaultState[todo](stamp)
	tree := Tree{"todos": s}

	sel := For[todo]("todos", WithClock(testutil.FrozenClock{T: stamp.Add(time.Minute)}))
	assert.Equal(t, time.Minute, sel.Age()(tree))
	assert.Equal(t, stamp, sel.LastUpdated()(tree))
}

func TestFor_ActiveAndNth(t *testing.T) {
	c := newCollection(t)
	s := c.SetActive(lettered(t, c, "abc"), "b")
	tree := Tree{"todos": s}
	sel := For[todo]("todos")

	assert.Equal(t, "b", sel.ActiveID()(tree))
	assert.Equal(t, "b", sel.Active()(tree).Title)
	assert.Equal(t, "c", sel.NthEntity(2)(tree).Title)
	assert.Equal(t, "c", sel.Latest()(tree).Title)
	assert.Len(t, sel.EntitiesMap()(tree), 3)
	assert.Equal(t, []string{"a", "b", "c"}, titles(sel.Paginated()(tree)))
}
