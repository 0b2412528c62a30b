package cache

import (
	"sync"
	"time"
)

// Cache is an in-process TTL cache. Every key carries a version that Delete bumps,
// so a reader that loaded data before a concurrent invalidation cannot put the
// stale copy back.
type Cache[V any] struct {
	mu       sync.RWMutex
	ttl      time.Duration
	m        map[string]entry[V]
	versions map[string]uint64
	now      func() time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache[V]{
		ttl:      ttl,
		m:        make(map[string]entry[V]),
		versions: make(map[string]uint64),
		now:      time.Now,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return zero, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// re-check, a writer may have replaced it meanwhile
		if cur, still := c.m[key]; still && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return e.val, true
}

// Version returns the current version of key, to be handed back to SetIfVersion.
func (c *Cache[V]) Version(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.versions[key]
}

func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	c.m[key] = entry[V]{val: val, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// SetIfVersion stores val only if key was not invalidated since version was read.
func (c *Cache[V]) SetIfVersion(key string, val V, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.versions[key] != version {
		return false
	}

	c.m[key] = entry[V]{val: val, exp: c.now().Add(c.ttl)}

	return true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.versions[key]++
	c.mu.Unlock()
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry[V])
	for k := range c.versions {
		c.versions[k]++
	}
	c.mu.Unlock()
}
