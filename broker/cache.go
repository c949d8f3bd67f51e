package broker

import (
	"sync"
	"time"
)

const defaultSeenRetention = time.Hour

// SeenCache is the broker's idempotency record: message id to the time
// it was processed. Entries older than the retention window are pruned
// lazily on access rather than by a background sweep. Safe for
// concurrent use by the receive loop and handler completions.
type SeenCache struct {
	mu        sync.Mutex
	retention time.Duration
	entries   map[string]time.Time
	now       func() time.Time
}

// NewSeenCache creates a SeenCache with the given retention window.
// A non-positive retention falls back to one hour.
func NewSeenCache(retention time.Duration) *SeenCache {
	if retention <= 0 {
		retention = defaultSeenRetention
	}
	return &SeenCache{
		retention: retention,
		entries:   make(map[string]time.Time),
		now:       time.Now,
	}
}

// Seen reports whether the message id was marked within the retention
// window, pruning expired entries as a side effect.
func (c *SeenCache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	_, exists := c.entries[id]
	return exists
}

// MarkSeen records the message id as processed at the current time.
func (c *SeenCache) MarkSeen(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = c.now()
}

// Len returns the number of live entries, pruning expired ones first.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	return len(c.entries)
}

// prune discards entries older than the retention window. Caller holds
// c.mu.
func (c *SeenCache) prune() {
	cutoff := c.now().Add(-c.retention)
	for id, seen := range c.entries {
		if seen.Before(cutoff) {
			delete(c.entries, id)
		}
	}
}
