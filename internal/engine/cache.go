package engine

import (
	"maps"
	"sync"
	"time"

	"streamgate/internal/playlist"
)

// DefaultCacheTTL is how long a completed selection stays fresh.
const DefaultCacheTTL = 300 * time.Second

// selectionCache holds the last computed group to candidate mapping. The
// mapping is always replaced whole, never updated entry by entry, so
// readers can never observe a half-finished pass.
type selectionCache struct {
	mu          sync.RWMutex
	selection   map[string]playlist.Entry
	lastUpdated time.Time
	ttl         time.Duration
}

func newSelectionCache(ttl time.Duration) *selectionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &selectionCache{ttl: ttl}
}

// Read returns the mapping when it is non-empty and within the TTL.
func (c *selectionCache) Read() (map[string]playlist.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.selection) == 0 || time.Since(c.lastUpdated) >= c.ttl {
		return nil, false
	}
	return maps.Clone(c.selection), true
}

// Contents returns the mapping regardless of freshness. Callers that lose
// the single-flight race get whatever is here rather than waiting.
func (c *selectionCache) Contents() map[string]playlist.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.selection)
}

// Write atomically replaces the mapping and marks it fresh.
func (c *selectionCache) Write(selection map[string]playlist.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = maps.Clone(selection)
	c.lastUpdated = time.Now()
}

// Invalidate clears the mapping so the next Read misses.
func (c *selectionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = nil
	c.lastUpdated = time.Time{}
}

// Age returns how long ago the mapping was written, or ok=false when the
// cache has never been populated.
func (c *selectionCache) Age() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastUpdated.IsZero() {
		return 0, false
	}
	return time.Since(c.lastUpdated), true
}
