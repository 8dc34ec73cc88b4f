package cache

import (
	"strings"
	"sync"
	"time"
)

// TTLCache is a bounded key/value cache with per-entry timestamps. It is an
// explicit dependency handed to whatever needs memoization, never a package
// global, so ownership and invalidation stay visible at the call site.
type TTLCache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value    any
	storedAt time.Time
}

func New(ttl time.Duration, maxEntries int) *TTLCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &TTLCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]entry{},
		now:        time.Now,
	}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.maxEntries {
		c.evict(now)
	}
	c.entries[key] = entry{value: value, storedAt: now}
}

func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeletePrefix drops every entry whose key starts with prefix and reports
// how many were removed. Event consumers use it to invalidate all cached
// day configs for a business or staff member at once.
func (c *TTLCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evict removes expired entries, then the oldest remaining ones until the
// cache is back under capacity. Called with the mutex held.
func (c *TTLCache) evict(now time.Time) {
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
	for len(c.entries) >= c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldest) {
				oldestKey = key
				oldest = e.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
