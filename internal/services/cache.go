package services

import (
	"sync"
	"time"

	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

type cacheEntry struct {
	points   []timeseries.Point
	cachedAt time.Time
}

// resultCache maps content digest + granularity to aggregated points.
// Entries never go stale because the key changes with the content; the
// oldest entry is evicted when the cache is full.
type resultCache struct {
	mu        sync.RWMutex
	entries   map[string]cacheEntry
	maxSize   int
	hitCount  int64
	missCount int64
}

func newResultCache(maxSize int) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
	}
}

func cacheKey(digest string, g timeseries.Granularity) string {
	return digest + ":" + string(g)
}

func (c *resultCache) get(key string) ([]timeseries.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.missCount++
		return nil, false
	}
	c.hitCount++
	return clonePoints(entry.points), true
}

func (c *resultCache) set(key string, points []timeseries.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 {
		return
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{points: clonePoints(points), cachedAt: time.Now()}
}

// clonePoints copies points so callers never share the cached backing array.
func clonePoints(points []timeseries.Point) []timeseries.Point {
	if points == nil {
		return nil
	}
	return append([]timeseries.Point(nil), points...)
}

func (c *resultCache) evictOldest() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for k, e := range c.entries {
		if oldestKey == "" || e.cachedAt.Before(oldestTime) {
			oldestKey, oldestTime = k, e.cachedAt
		}
	}
	delete(c.entries, oldestKey)
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func (c *resultCache) stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hitCount, Misses: c.missCount}
}
