// Package cache is a typed in-memory cache with per entry expiration.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	// NoExpiration keeps entries until they are deleted.
	NoExpiration = gocache.NoExpiration
	// DefaultExpiration uses the expiration the cache was created with.
	DefaultExpiration = gocache.DefaultExpiration

	DefaultCleanupInterval = 30 * time.Minute
)

// Cache maps string keys to values of type V.
type Cache[V any] struct {
	name  string
	cache *gocache.Cache
}

// New creates a cache. name identifies the cache in log messages.
// A defaultExpiration of [NoExpiration] keeps entries forever unless Set says otherwise.
func New[V any](name string, defaultExpiration, cleanupInterval time.Duration) *Cache[V] {
	return &Cache[V]{
		name:  name,
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

// Get retrieves an item from the cache by its key.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zeroValue V

	value, found := c.cache.Get(key)
	if !found {
		return zeroValue, false
	}

	v, ok := value.(V)
	if !ok {
		zerolog.Ctx(ctx).Error().Str("cache", c.name).Str("key", key).Msg("wrong type assertion when getting value")
		return zeroValue, false
	}

	zerolog.Ctx(ctx).Trace().Str("cache", c.name).Str("key", key).Msg("cache hit")
	return v, true
}

// Set stores value under key for ttl.
func (c *Cache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

// Delete removes the values stored under keys.
func (c *Cache[V]) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.cache.Delete(key)
	}
}

// Flush removes every value.
func (c *Cache[V]) Flush(_ context.Context) {
	c.cache.Flush()
}

// Len returns the number of stored values, including expired ones not yet cleaned up.
func (c *Cache[V]) Len() int {
	return c.cache.ItemCount()
}
