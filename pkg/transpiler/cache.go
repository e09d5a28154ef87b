package transpiler

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
	"time"

	"github.com/synerthink/dotlanth/pkg/arch"
	"github.com/synerthink/dotlanth/pkg/executor"
)

// CacheStats reports a Cache's cumulative hit/miss counts and its
// current entry count, for exposing as metrics.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

type cacheEntry struct {
	image   *executor.Image
	modTime time.Time
}

// Cache memoizes Generate's output keyed by the hash of the source WASM
// bytes and the target tier, so re-deploying an unchanged dot skips the
// whole parse/translate/optimize/generate pipeline. When GetOrCompile is
// called with a sourcePath, the cached entry is invalidated if the file's
// modification time has advanced past what was recorded at compile time
// — a dot file edited on disk recompiles on its next run rather than
// serving stale bytecode.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    uint64
	misses  uint64
}

// NewCache returns an empty compilation cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// CacheKey derives the cache key for a WASM module's bytes and target
// tier: the hex SHA-256 digest of the bytes concatenated with the tier
// byte, so two modules with identical content but different tiers never
// collide.
func CacheKey(wasm []byte, tier arch.Tier) string {
	h := sha256.New()
	h.Write(wasm)
	h.Write([]byte{byte(tier)})
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompile returns the cached image for key if present and not
// stale, otherwise runs compile, stores its result, and returns it.
// sourcePath may be empty, in which case no mtime invalidation applies
// and the entry is cached for the process lifetime.
func (c *Cache) GetOrCompile(key, sourcePath string, compile func() (*executor.Image, error)) (*executor.Image, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && sourcePath != "" {
		if info, err := os.Stat(sourcePath); err == nil && info.ModTime().After(entry.modTime) {
			ok = false
		}
	}
	if ok {
		c.hits++
		c.mu.Unlock()
		return entry.image, nil
	}
	c.misses++
	c.mu.Unlock()

	img, err := compile()
	if err != nil {
		return nil, err
	}

	var modTime time.Time
	if sourcePath != "" {
		if info, err := os.Stat(sourcePath); err == nil {
			modTime = info.ModTime()
		}
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{image: img, modTime: modTime}
	c.mu.Unlock()
	return img, nil
}

// Invalidate removes key from the cache, forcing the next GetOrCompile
// to recompile.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Stats reports the cache's cumulative hit/miss counts and live entry
// count.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}
