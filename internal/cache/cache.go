package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

// Cache defines the interface for caching external lookups
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced key ("claims", "search", "scrape") from its parts
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "veritas:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the configured cache, or nil when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir != "" {
		return NewLayeredCache(
			NewMemoryCache(cfg.MemoryTTL, 10*time.Minute),
			NewDiskCache(cfg.DiskDir, cfg.DiskTTL),
		)
	}
	return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
}

// GetJSON decodes a cached value into v. A nil cache always misses.
func GetJSON(c Cache, key string, v any) bool {
	if c == nil {
		return false
	}
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v into the cache. A nil cache is a no-op.
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}
