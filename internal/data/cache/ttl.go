package cache

import (
	"context"
	"sync"
	"time"
)

// TTLCache is an in-process Cache with time-based expiration and LRU eviction
type TTLCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int64
	stats      Stats
	now        func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

type cacheEntry struct {
	value    []byte
	expires  time.Time
	accessed time.Time
}

// Stats reports cache effectiveness
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int64 `json:"entries"`
}

// HitRatio is hits over lookups, 0 before the first lookup
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewTTLCache creates a cache holding at most maxEntries values
func NewTTLCache(maxEntries int64) *TTLCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	cache := &TTLCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}

	go cache.cleanup()
	return cache
}

// Get returns a copy of the stored value if present and not expired
func (c *TTLCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.stats.Misses++
		return nil, false, nil
	}

	now := c.now()
	if now.After(entry.expires) {
		delete(c.entries, key)
		c.stats.Misses++
		return nil, false, nil
	}

	entry.accessed = now
	c.stats.Hits++
	return append([]byte(nil), entry.value...), true, nil
}

// Set stores a copy of value. A non-positive ttl stores nothing.
func (c *TTLCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && int64(len(c.entries)) >= c.maxEntries {
		c.evictLRU()
	}

	now := c.now()
	c.entries[key] = &cacheEntry{
		value:    append([]byte(nil), value...),
		expires:  now.Add(ttl),
		accessed: now,
	}
	return nil
}

// Delete removes a key
func (c *TTLCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Stats returns a snapshot of cache counters
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = int64(len(c.entries))
	return stats
}

// Close stops the cleanup goroutine
func (c *TTLCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// evictLRU removes the least recently used entry (caller must hold the lock)
func (c *TTLCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.accessed.Before(oldestTime) {
			oldestTime = entry.accessed
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

func (c *TTLCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TTLCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}
