package view

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/testutil"
	"github.com/stretchr/testify/assert"
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

func lettered(t *testing.T, c *entity.Collection[todo], letters string) entity.State[todo] {
	t.Helper()
	records := make([]todo, 0, len(letters))
	for _, r := range letters {
		records = append(records, todo{Title: string(r)})
	}
	s, err := c.Add(c.Default(), records...)
	require.NoError(t, err)
	return s
}

func titles(records []todo) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

func TestEmptyState(t *testing.T) {
	var s entity.State[todo]

	assert.Equal(t, "", ActiveID(s))
	assert.Nil(t, Active(s))
	assert.Equal(t, []string{}, Keys(s))
	assert.Equal(t, []todo{}, Entities(s))
	assert.Nil(t, NthEntity(s, 0))
	assert.Equal(t, []todo{}, Paginated(s))
	assert.Equal(t, map[string]todo{}, EntitiesMap(s))
	assert.Equal(t, 0, Size(s))
	assert.NoError(t, Error(s))
	assert.False(t, Loading(s))
	assert.Nil(t, Latest(s))
	assert.Equal(t, "", LatestID(s))
}

func TestEntitiesFollowInsertionOrder(t *testing.T) {
	c := newCollection(t)
	s := lettered(t, c, "cab")

	s, err := c.Remove(s, entity.ByID[todo]("a"))
	require.NoError(t, err)
	s, err = c.Add(s, todo{Title: "a"}, todo{Title: "d"})
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "b", "a", "d"}, Keys(s))
	assert.Equal(t, []string{"c", "b", "a", "d"}, titles(Entities(s)))
	assert.Equal(t, "d", LatestID(s))
	assert.Equal(t, "d", Latest(s).Title)
	assert.Equal(t, "b", NthEntity(s, 1).Title)
	assert.Nil(t, NthEntity(s, 4))
	assert.Nil(t, NthEntity(s, -1))
}

func TestPaginated(t *testing.T) {
	c := newCollection(t)
	s := lettered(t, c, "abcdefg")
	s, err := c.SetPageSize(s, 2)
	require.NoError(t, err)

	tests := []struct {
		page int
		want []string
	}{
		{0, []string{"a", "b"}},
		{1, []string{"c", "d"}},
		{3, []string{"g"}},
	}
	for _, tt := range tests {
		got := Paginated(c.GoToPage(s, entity.ToPage(tt.page)))
		assert.Equal(t, tt.want, titles(got), "page %d", tt.page)
	}

	// a page index left past the end by SetPageSize yields an empty page
	s = c.GoToPage(s, entity.LastPage())
	s, err = c.SetPageSize(s, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, s.PageIndex)
	assert.Empty(t, Paginated(s))
}

func TestPaginated_HugePageIndex(t *testing.T) {
	c := newCollection(t)
	s := lettered(t, c, "abcdefg")

	for _, index := range []int{math.MaxInt / 5, math.MaxInt / 7, math.MaxInt} {
		huge := c.Default(
			entity.WithEntities(s.Entities),
			entity.WithIDs[todo](s.IDs...),
			entity.WithPageSize[todo](7),
			entity.WithPageIndex[todo](index),
		)
		assert.NotPanics(t, func() {
			assert.Empty(t, Paginated(huge), "page %d", index)
		})
	}
}

func TestActiveSelectors(t *testing.T) {
	c := newCollection(t)
	s := lettered(t, c, "ab")

	s = c.SetActive(s, "a")
	assert.Equal(t, "a", ActiveID(s))
	require.NotNil(t, Active(s))
	assert.Equal(t, "a", Active(s).Title)

	removed, err := c.Remove(s, entity.ByID[todo]("a"))
	require.NoError(t, err)
	assert.Equal(t, "", ActiveID(removed))
	assert.Nil(t, Active(removed))

	kept, err := c.Remove(s, entity.ByID[todo]("b"))
	require.NoError(t, err)
	assert.Equal(t, "a", ActiveID(kept))

	dangling := c.SetActive(s, "ghost")
	assert.Equal(t, "ghost", ActiveID(dangling))
	assert.Nil(t, Active(dangling))
}

func TestEntitiesMapIsCopy(t *testing.T) {
	c := newCollection(t)
	s := lettered(t, c, "a")

	m := EntitiesMap(s)
	m["z"] = todo{Title: "z"}
	assert.Equal(t, 1, Size(s))
}

func TestFlagsAndTimestamps(t *testing.T) {
	c := newCollection(t)
	s := lettered(t, c, "a")
	boom := errors.New("boom")

	s = c.SetError(c.SetLoading(s, true), boom)
	assert.True(t, Loading(s))
	assert.Equal(t, boom, Error(s))

	assert.Equal(t, s.LastUpdated, LastUpdated(s))
	assert.Equal(t, 5*time.Second, Age(s, s.LastUpdated.Add(5*time.Second)))
}

func TestScenario_TitleKeyed(t *testing.T) {
	c := newCollection(t)

	s1, err := c.Add(c.Default(), todo{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, Size(s1))
	assert.Equal(t, "x", LatestID(s1))

	s2, err := c.Update(s1, entity.ByID[todo]("x"), entity.Set[todo](entity.Patch{"done": true}))
	require.NoError(t, err)
	assert.True(t, s2.Entities["x"].Done)
	assert.True(t, LastUpdated(s2).After(LastUpdated(s1)))

	s3, err := c.Remove(s2, entity.ByID[todo]("x"))
	require.NoError(t, err)
	assert.Equal(t, 0, Size(s3))
	assert.Equal(t, "", ActiveID(s3))
}
