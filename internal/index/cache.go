package index

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// DefaultCacheDir is the default on-disk cache directory relative to the
// user's home directory.
const DefaultCacheDir = ".depfix/cache"

// Cache is an optional on-disk store for raw index responses. Entries are
// keyed by a hash of the request URL, so the same package against a
// different index never collides.
type Cache struct {
	// Dir is the base cache directory
	Dir string
}

// DefaultCache returns a cache using the default location (~/.depfix/cache).
func DefaultCache() (*Cache, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewCache(filepath.Join(homeDir, DefaultCacheDir)), nil
}

// NewCache creates a cache at the specified directory.
// The directory is created when the first entry is written.
func NewCache(baseDir string) *Cache {
	return &Cache{Dir: baseDir}
}

// Key returns the cache key for a request URL.
func (c *Cache) Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return filepath.Join("index", hex.EncodeToString(hash[:])+".json")
}

// Get returns the cached response body for a URL, or ok=false.
func (c *Cache) Get(url string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(c.Dir, c.Key(url)))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores a response body for a URL. Failures are swallowed: the cache
// is an optimization, never a correctness dependency.
func (c *Cache) Put(url string, data []byte) {
	path := filepath.Join(c.Dir, c.Key(url))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
	}
}

// Clear removes the entire cache directory.
func (c *Cache) Clear() error {
	return os.RemoveAll(c.Dir)
}
