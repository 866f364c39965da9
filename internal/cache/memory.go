package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements in-memory caching. Useful as the fast layer of a
// LayeredCache and as an injectable fake in tests.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache. Entries never expire.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value []byte) error {
	c.cache.Set(key, value, gocache.NoExpiration)
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
