package cache

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint([]byte("meeting transcript"), "v3")
	b := Fingerprint([]byte("meeting transcript"), "v3")
	if a != b {
		t.Errorf("identical content and version should map to one key: %s vs %s", a, b)
	}
}

func TestFingerprint_ContentSensitivity(t *testing.T) {
	a := Fingerprint([]byte("meeting transcript"), "v3")
	b := Fingerprint([]byte("meeting transcripT"), "v3")
	if a == b {
		t.Error("single-character content change should change the fingerprint")
	}
}

func TestFingerprint_VersionSensitivity(t *testing.T) {
	a := Fingerprint([]byte("meeting transcript"), "v3")
	b := Fingerprint([]byte("meeting transcript"), "v4")
	if a == b {
		t.Error("extractor version change should change the fingerprint")
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "extracts"))
	key := Fingerprint([]byte("content"), "v1")

	if _, found := c.Get(key); found {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Set(key, []byte(`{"notes":"x"}`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, found := c.Get(key)
	if !found {
		t.Fatal("expected hit after set")
	}
	if !bytes.Equal(got, []byte(`{"notes":"x"}`)) {
		t.Errorf("unexpected value: %s", got)
	}
}

func TestDiskCache_Clear(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "extracts"))
	key := Fingerprint([]byte("content"), "v1")

	if err := c.Set(key, []byte("value")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, found := c.Get(key); found {
		t.Error("expected miss after clear")
	}
}

func TestLayeredCache_PromotesToMemory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "extracts")
	key := Fingerprint([]byte("content"), "v1")

	// Seed disk directly, then read through a fresh layered cache.
	if err := NewDiskCache(dir).Set(key, []byte("value")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	layered := NewLayeredCache(dir)
	if _, found := layered.Get(key); !found {
		t.Fatal("expected hit from disk layer")
	}
	if _, found := layered.memory.Get(key); !found {
		t.Error("expected entry promoted to memory layer")
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()
	if err := c.Set("k", []byte("v")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := c.Delete("k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}
