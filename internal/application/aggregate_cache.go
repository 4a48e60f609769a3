package application

import (
	"sync"
	"time"

	"github.com/example/class-timetable/internal/scheduler"
)

// aggregateCache keeps the last loaded aggregate of each class. Entries older than ttl
// are reported as missing so the next access reloads them from the gateway. A
// non-positive ttl disables expiry.
type aggregateCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]aggregateCacheEntry
}

type aggregateCacheEntry struct {
	aggregate scheduler.Aggregate
	loadedAt  time.Time
}

func newAggregateCache(ttl time.Duration, maxEntries int, now func() time.Time) *aggregateCache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	return &aggregateCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]aggregateCacheEntry),
	}
}

func (c *aggregateCache) Get(className string) (scheduler.Aggregate, bool) {
	c.mu.RLock()
	entry, ok := c.entries[className]
	c.mu.RUnlock()
	if !ok {
		return scheduler.Aggregate{}, false
	}
	if c.expired(entry) {
		c.mu.Lock()
		if current, ok := c.entries[className]; ok && c.expired(current) {
			delete(c.entries, className)
		}
		c.mu.Unlock()
		return scheduler.Aggregate{}, false
	}
	return entry.aggregate.Clone(), true
}

// Store replaces the cached aggregate wholesale and restarts its ttl.
func (c *aggregateCache) Store(aggregate scheduler.Aggregate) {
	entry := aggregateCacheEntry{aggregate: aggregate.Clone(), loadedAt: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[aggregate.ClassName]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[aggregate.ClassName] = entry
}

// Update swaps in a locally mutated aggregate while keeping the original load time, so
// periodic reloads still pick up writes made by other processes.
func (c *aggregateCache) Update(aggregate scheduler.Aggregate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[aggregate.ClassName]
	if !ok {
		if len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
		entry.loadedAt = c.now()
	}
	entry.aggregate = aggregate.Clone()
	c.entries[aggregate.ClassName] = entry
}

func (c *aggregateCache) Invalidate(className string) {
	c.mu.Lock()
	delete(c.entries, className)
	c.mu.Unlock()
}

func (c *aggregateCache) expired(entry aggregateCacheEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.loadedAt) >= c.ttl
}

func (c *aggregateCache) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, entry := range c.entries {
		if !found || entry.loadedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, entry.loadedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
