package recipeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	if r.URL.Query().Get("apiKey") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.URL.Path == "/recipes/complexSearch" {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []Recipe{
			{ID: 1, Title: "Lemon Chicken"},
			{ID: 2, Title: "Chickpea Curry"},
		}})
		return
	}
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/recipes/"), "/information")
	id, err := strconv.ParseInt(idStr, 10, 64)
	switch {
	case err != nil || id >= 900:
		w.WriteHeader(http.StatusNotFound)
	case id == 500:
		w.WriteHeader(http.StatusBadGateway)
	default:
		json.NewEncoder(w).Encode(Recipe{ID: id, Title: "Recipe " + idStr})
	}
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "secret", opts...)
	require.NoError(t, err)
	return c
}

func TestGetRecipeCaches(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)
	ctx := context.Background()

	r, err := c.GetRecipe(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Recipe 7", r.Title)

	_, err = c.GetRecipe(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestGetRecipeErrors(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	ctx := context.Background()

	_, err := c.GetRecipe(ctx, 901)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetRecipe(ctx, 500)
	assert.True(t, utils.IsKind(err, utils.KindTransient))

	_, err = c.GetRecipe(ctx, 0)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestGetRecipesPreservesOrderAndBoundsConcurrency(t *testing.T) {
	api := &fakeAPI{delay: 20 * time.Millisecond}
	c := newTestClient(t, api, WithConcurrency(2))

	got, err := c.GetRecipes(context.Background(), []int64{5, 3, 901, 8, 1, 4})
	require.NoError(t, err)

	var ids []int64
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{5, 3, 8, 1, 4}, ids)
	assert.LessOrEqual(t, api.peak.Load(), int32(2))
}

func TestGetRecipesFailsOnUpstreamError(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	_, err := c.GetRecipes(context.Background(), []int64{1, 500})
	assert.True(t, utils.IsKind(err, utils.KindTransient))
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	got, err := c.Search(context.Background(), "chicken", 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = c.Search(context.Background(), "  ", 5)
	assert.True(t, utils.Is(err, utils.Validation("query_required")))
}

func TestRankByTitle(t *testing.T) {
	in := []Recipe{
		{ID: 1, Title: "Beef Stew"},
		{ID: 2, Title: "Chickpea Curry"},
		{ID: 3, Title: "Curry Chicken"},
	}
	out := RankByTitle("curry", in)
	require.Len(t, out, 3)
	assert.ElementsMatch(t, []int64{2, 3}, []int64{out[0].ID, out[1].ID})
	assert.Equal(t, int64(1), out[2].ID)

	assert.Equal(t, in, RankByTitle("", in))
}
