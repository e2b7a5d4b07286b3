package envsecret

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Get(t *testing.T) {
	t.Setenv("MOVIECLUB_CATALOG_API_KEY", `{"api_key":"k-1"}`)

	store := New(map[string]string{"tmdb": "MOVIECLUB_CATALOG_API_KEY"})

	v, err := store.Get(context.Background(), "tmdb")
	require.NoError(t, err)
	assert.Equal(t, `{"api_key":"k-1"}`, v)
}

func TestStore_ReadsAtFetchTime(t *testing.T) {
	t.Setenv("MOVIECLUB_CATALOG_API_KEY", "old")
	store := New(map[string]string{"tmdb": "MOVIECLUB_CATALOG_API_KEY"})

	t.Setenv("MOVIECLUB_CATALOG_API_KEY", "new")

	v, err := store.Get(context.Background(), "tmdb")
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}

func TestStore_MissingIsEmpty(t *testing.T) {
	store := New(map[string]string{"tmdb": "MOVIECLUB_TEST_UNSET_VARIABLE"})

	v, err := store.Get(context.Background(), "tmdb")
	require.NoError(t, err)
	assert.Empty(t, v)

	v, err = store.Get(context.Background(), "unmapped")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestStore_CancelledContext(t *testing.T) {
	store := New(map[string]string{"tmdb": "MOVIECLUB_CATALOG_API_KEY"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "tmdb")
	assert.ErrorIs(t, err, context.Canceled)
}
