package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache is a keyed, time-bounded read cache. Each read decides its own TTL.
type Cache struct {
	clock   Clock
	mutex   sync.Mutex
	entries map[string]entry
	hooks   Hooks
}

// Hooks observe cache outcomes; nil funcs are skipped.
type Hooks struct {
	OnHit  func(key string)
	OnMiss func(key string)
}

func New(clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{clock: clock, entries: make(map[string]entry)}
}

// WithHooks attaches observers and returns the cache.
func (c *Cache) WithHooks(h Hooks) *Cache {
	c.hooks = h
	return c
}

// GetOrRefresh returns the cached value for key if it is younger than ttl,
// otherwise calls loader and caches its result. Loader errors are returned
// and leave any previous entry in place.
func GetOrRefresh[V any](c *Cache, key string, ttl time.Duration, loader func() (V, error)) (V, error) {
	now := c.clock.Now()

	c.mutex.Lock()
	e, ok := c.entries[key]
	c.mutex.Unlock()

	if ok && now.Sub(e.fetchedAt) < ttl {
		if v, typed := e.value.(V); typed {
			if c.hooks.OnHit != nil {
				c.hooks.OnHit(key)
			}
			return v, nil
		}
		zap.L().Warn("Cache entry has unexpected type, refreshing", zap.String("key", key))
	}

	if c.hooks.OnMiss != nil {
		c.hooks.OnMiss(key)
	}

	v, err := loader()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mutex.Lock()
	c.entries[key] = entry{value: v, fetchedAt: now}
	c.mutex.Unlock()
	return v, nil
}

// Invalidate drops a single key.
func (c *Cache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the number of cached keys, fresh or stale.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}
