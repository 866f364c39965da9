package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskCache stores one JSON file per fingerprint under a directory. This is
// the durable cache that lets re-runs skip already-extracted documents.
type DiskCache struct {
	dir string
}

// NewDiskCache creates a new disk cache rooted at dir.
func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

// Get retrieves a value from the disk cache.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores a value in the disk cache. The write is atomic per key: a
// temp file is renamed into place, so concurrent runs targeting the same
// fingerprint cannot observe a partial entry.
func (c *DiskCache) Set(key string, value []byte) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}

	return nil
}

// Delete removes a value from the disk cache.
func (c *DiskCache) Delete(key string) error {
	return os.Remove(c.path(key))
}

// Clear removes all cached files. Destructive and explicit, never implicit.
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key. Colons in the key prefix
// are not portable file name characters.
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(key, ":", "_")+".json")
}
