// Package embedcache is the process-local query-embedding cache (spec §4.6
// step 1: "a repeated query embeds once per TTL window"). It is backed by
// ristretto, an indirect dependency of the retrieval pack's vector-store
// tooling promoted here to a direct one — see DESIGN.md for why no example
// repo exercises it directly.
package embedcache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// SoftCap approximates the spec's "roughly 100 entries, oldest evicted
// first" sizing note. Ristretto's TinyLFU eviction isn't strictly
// insertion-order, so this is an approximation, not an exact FIFO.
const SoftCap = 100

type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// New builds a query-embedding cache with the given TTL.
func New(ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: SoftCap * 10,
		MaxCost:     SoftCap,
		BufferItems: 64,
		// each entry costs exactly 1, so MaxCost counts entries
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Get returns the cached vector for query, if present and unexpired.
func (c *Cache) Get(query string) ([]float32, bool) {
	v, ok := c.c.Get(query)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	return vec, ok
}

// Set stores vec for query with the cache's configured TTL.
func (c *Cache) Set(query string, vec []float32) {
	c.c.SetWithTTL(query, vec, 1, c.ttl)
}

// Close releases background goroutines held by the underlying cache.
func (c *Cache) Close() {
	c.c.Close()
}
