package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Cache is the key-value store for Phase 1 extraction results. Entries are
// valid indefinitely: only Clear or a changed fingerprint invalidates them.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
	Clear() error
}

// Fingerprint derives the cache key for a document. Hashing the extractor
// version together with the content means identical content always maps to
// the same slot, and bumping the version invalidates every prior entry
// without manual bookkeeping.
func Fingerprint(content []byte, extractorVersion string) string {
	h := sha256.New()
	h.Write([]byte(extractorVersion))
	h.Write([]byte{0})
	h.Write(content)
	return "boardwatch:v1:" + hex.EncodeToString(h.Sum(nil))
}
