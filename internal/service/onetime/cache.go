// Package onetime guarantees at-most-once consumption of short-lived tokens.
//
// Cache is an in-memory set of tokens with a fixed time to live. It is independent
// of the long-lived sessions kept in the database and is lost on restart.
package onetime

import (
	"context"
	"sync"
	"time"
)

const DefaultTTL = 30 * time.Second

type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time // token -> expires at

	now func() time.Time
}

// NewCache creates cache with ttl, non-positive ttl means DefaultTTL
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Put adds token, re-adding a live token restarts its ttl
func (c *Cache) Put(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictLocked(now)
	c.entries[token] = now.Add(c.ttl)
}

// Consume reports whether token was present and alive, and removes it
// Only one of concurrent callers with the same token gets true
func (c *Cache) Consume(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt, ok := c.entries[token]
	if !ok {
		return false
	}

	delete(c.entries, token)
	return c.now().Before(expiresAt)
}

// Len returns number of live tokens
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked(c.now())
	return len(c.entries)
}

// Run evicts expired tokens every ttl until ctx is done
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictLocked(c.now())
			c.mu.Unlock()
		}
	}
}

func (c *Cache) evictLocked(now time.Time) {
	for token, expiresAt := range c.entries {
		if !now.Before(expiresAt) {
			delete(c.entries, token)
		}
	}
}
