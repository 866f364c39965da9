package cache

// LayeredCache fronts the disk cache with a memory cache so repeated reads
// within one run (digest-only mode reads every entry twice) avoid disk.
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a new layered cache over diskDir.
func NewLayeredCache(diskDir string) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(),
		disk:   NewDiskCache(diskDir),
	}
}

// Get retrieves a value, checking memory first, then disk.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers.
func (c *LayeredCache) Set(key string, value []byte) error {
	if err := c.disk.Set(key, value); err != nil {
		return err
	}
	return c.memory.Set(key, value)
}

// Delete removes a value from both layers.
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear removes all values from both layers.
func (c *LayeredCache) Clear() error {
	if err := c.memory.Clear(); err != nil {
		return err
	}
	return c.disk.Clear()
}
