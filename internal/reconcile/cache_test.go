package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetPut(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, ok := cache.Get(ctx, "osm:node/1")
	assert.False(t, ok)

	cache.Put(ctx, "osm:node/1", "internal-1")
	id, ok := cache.Get(ctx, "osm:node/1")
	assert.True(t, ok)
	assert.Equal(t, "internal-1", id)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_FirstWriteWins(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Put(ctx, "osm:node/1", "internal-1")
	cache.Put(ctx, "osm:node/1", "internal-2")

	id, _ := cache.Get(ctx, "osm:node/1")
	assert.Equal(t, "internal-1", id)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("osm:node/%d", i%4)
			cache.Put(ctx, key, fmt.Sprintf("internal-%d", i))
			cache.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, cache.Len())
}

func newRedisCache(t *testing.T, ttl time.Duration) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl)
}

func TestRedisCache_GetPut(t *testing.T) {
	cache := newRedisCache(t, time.Hour)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "fsq:abc")
	assert.False(t, ok)

	cache.Put(ctx, "fsq:abc", "internal-1")
	id, ok := cache.Get(ctx, "fsq:abc")
	require.True(t, ok)
	assert.Equal(t, "internal-1", id)
}

func TestRedisCache_SetNXKeepsFirstValue(t *testing.T) {
	cache := newRedisCache(t, time.Hour)
	ctx := context.Background()

	cache.Put(ctx, "fsq:abc", "internal-1")
	cache.Put(ctx, "fsq:abc", "internal-2")

	id, _ := cache.Get(ctx, "fsq:abc")
	assert.Equal(t, "internal-1", id)
}

func TestRedisCache_UnreachableRedisIsAMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := NewRedisCache(client, time.Hour)

	mr.Close()

	_, ok := cache.Get(context.Background(), "fsq:abc")
	assert.False(t, ok)
}
