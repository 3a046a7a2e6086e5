// Package weather provides the current-conditions data layer for the alert
// evaluation engine: a TTL cache of fetched readings, a failure log for
// observability, and the Fetcher that wraps the external provider call.
package weather

import (
	"sort"
	"sync"
	"time"

	"weatherwatch/internal/types"
)

// DefaultCacheTTL is the freshness window for cached readings.
const DefaultCacheTTL = 5 * time.Minute

// cacheEntry pairs a reading with its fetch time. Entries are replaced, never
// mutated in place.
type cacheEntry struct {
	reading   types.Reading
	fetchedAt time.Time
}

// Cache is a time-bounded cache mapping canonical location key to the
// last-fetched weather reading. It is the single source of truth for whether
// a location's data is still fresh.
//
// Expiry is lazy: staleness is checked at read time, no background sweep.
// Capacity is bounded in practice by the number of distinct locations in use,
// so there is no LRU eviction; entries self-expire.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   types.Clock
}

// NewCache creates a Cache with the given TTL. A non-positive TTL falls back
// to DefaultCacheTTL. A nil clock falls back to the real clock.
func NewCache(ttl time.Duration, clock types.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached reading for key iff now - fetchedAt < TTL.
// A stale entry behaves exactly like an absent one, regardless of content.
func (c *Cache) Get(key string) (types.Reading, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return types.Reading{}, false
	}
	if c.clock.Now().Sub(entry.fetchedAt) >= c.ttl {
		return types.Reading{}, false
	}
	return entry.reading, true
}

// Put stores a freshly fetched reading for key, replacing any prior entry.
func (c *Cache) Put(key string, reading types.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		reading:   reading,
		fetchedAt: c.clock.Now(),
	}
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll clears the cache entirely.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Status returns a read-only snapshot of every live entry with its age and
// remaining TTL, sorted by key. Expired entries are omitted (they behave as
// absent) but are not actively removed.
func (c *Cache) Status() []types.CacheEntryStatus {
	now := c.clock.Now()

	c.mu.RLock()
	statuses := make([]types.CacheEntryStatus, 0, len(c.entries))
	for key, entry := range c.entries {
		age := now.Sub(entry.fetchedAt)
		if age >= c.ttl {
			continue
		}
		remaining := c.ttl - age
		statuses = append(statuses, types.CacheEntryStatus{
			Key:          key,
			Age:          age,
			TTLRemaining: remaining,
			AgeSeconds:   age.Seconds(),
			TTLSeconds:   remaining.Seconds(),
		})
	}
	c.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Key < statuses[j].Key
	})
	return statuses
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
