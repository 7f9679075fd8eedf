package cache

import (
	"sync"
	"time"
)

// Cache is a lock-guarded map whose entries expire. Each entry also remembers
// when it was stored so callers can drop entries by age.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	val    any
	stored time.Time
	exp    time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.evictExpired(key, now)
		return nil, false
	}

	return e.val, true
}

// evictExpired re-reads key under the write lock; a concurrent Set may have
// replaced the stale entry since the read lock was released.
func (c *Cache) evictExpired(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.m[key]; ok && now.After(e.exp) {
		delete(c.m, key)
	}
}

func (c *Cache) Set(key string, val any) {
	now := c.now()
	c.SetUntil(key, val, now.Add(c.ttl))
}

// SetUntil stores val with an explicit expiry instead of the default TTL.
func (c *Cache) SetUntil(key string, val any, exp time.Time) {
	now := c.now()
	c.mu.Lock()
	c.m[key] = entry{val: val, stored: now, exp: exp}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Sweep drops expired entries and, when maxAge > 0, entries stored more than
// maxAge ago. It returns how many were removed.
func (c *Cache) Sweep(maxAge time.Duration) int {
	now := c.now()
	cutoff := now.Add(-maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.m {
		if now.After(e.exp) || (maxAge > 0 && e.stored.Before(cutoff)) {
			delete(c.m, k)
			removed++
		}
	}
	return removed
}
