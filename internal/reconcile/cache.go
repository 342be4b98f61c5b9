package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes (provider, externalId) -> internalId. Entries are created
// on first successful resolution and never invalidated within a session: an
// internal id for a given external place is immutable once established.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, internalID string)
}

// MemoryCache is the default session-scoped implementation. A mutex-guarded
// map is enough: contention is low and entries are only ever inserted once.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.entries[key]
	return id, ok
}

func (c *MemoryCache) Put(_ context.Context, key, internalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// First write wins; concurrent resolvers of the same place get the
	// same internal id from the backend anyway.
	if _, exists := c.entries[key]; exists {
		return
	}
	c.entries[key] = internalID
}

// Len reports the number of cached resolutions.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares resolutions across server instances. SetNX keeps the
// insert-once semantics of the memory implementation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "resolution:",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		// Cache misses and redis failures look the same to the caller:
		// resolution falls through to the backend either way.
		return "", false
	}
	return val, true
}

func (c *RedisCache) Put(ctx context.Context, key, internalID string) {
	c.client.SetNX(ctx, c.prefix+key, internalID, c.ttl)
}
