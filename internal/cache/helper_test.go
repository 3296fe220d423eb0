package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestSetAndGetJSON(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "thing:1", cachedThing{ID: 1, Name: "widget"}, time.Minute))

	var got cachedThing
	found, err := GetJSON(ctx, "thing:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "widget", got.Name)
}

func TestGetJSONMiss(t *testing.T) {
	setupMiniredis(t)

	var got cachedThing
	found, err := GetJSON(context.Background(), "thing:absent", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAsideFetchesOnMissAndCaches(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			fetches++
			*dest = cachedThing{ID: 7, Name: "fetched"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "thing:7", &first, time.Minute, fetch(&first)))
	assert.Equal(t, "fetched", first.Name)
	assert.Equal(t, 1, fetches)

	// Second read is served from the cache.
	var second cachedThing
	require.NoError(t, Aside(ctx, "thing:7", &second, time.Minute, fetch(&second)))
	assert.Equal(t, "fetched", second.Name)
	assert.Equal(t, 1, fetches)
}

func TestAsideWithoutRedisStillFetches(t *testing.T) {
	SetClient(nil)

	var got cachedThing
	err := Aside(context.Background(), "thing:9", &got, time.Minute, func() error {
		got = cachedThing{ID: 9, Name: "direct"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", got.Name)
}

func TestInvalidatePostDropsListProjections(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey(3), cachedThing{ID: 3}, time.Minute))
	require.NoError(t, SetJSON(ctx, OwnerPostsKey(12), []cachedThing{{ID: 3}}, time.Minute))
	require.NoError(t, SetJSON(ctx, AllPostsKey, []cachedThing{{ID: 3}}, time.Minute))

	InvalidatePost(ctx, 3, 12)

	assert.False(t, mr.Exists(PostKey(3)))
	assert.False(t, mr.Exists(OwnerPostsKey(12)))
	assert.False(t, mr.Exists(AllPostsKey))
}
