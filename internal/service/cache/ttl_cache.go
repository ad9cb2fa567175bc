package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// TTLCache is an in-process map whose entries expire after a fixed ttl.
type TTLCache[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	ttl time.Duration
	now func() time.Time
}

func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{m: make(map[string]entry[V]), ttl: ttl, now: time.Now}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e) {
		// a Set may have refreshed key since the read lock was released
		c.mu.Lock()
		e, ok = c.m[key]
		if ok && c.expired(e) {
			delete(c.m, key)
			ok = false
		}
		c.mu.Unlock()
		if !ok {
			var zero V
			return zero, false
		}
	}
	return e.v, true
}

func (c *TTLCache[V]) Set(key string, v V) {
	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: exp}
	c.mu.Unlock()
}

func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Sweep drops expired entries and returns how many were removed.
func (c *TTLCache[V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.m {
		if e.expiredAt(now) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

func (c *TTLCache[V]) expired(e entry[V]) bool { return e.expiredAt(c.now()) }

func (e entry[V]) expiredAt(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
