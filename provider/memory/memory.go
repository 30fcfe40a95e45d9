// Package memory is the in-process map adapter. It has no eviction and no
// expiration: wrap a bounded store (lru, ristretto, bigcache) when you need one.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/layercache"
)

// Map is safe for concurrent use. The mutex only protects the map itself;
// compound sequences still need layercache.Locked.
type Map[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

var _ layercache.Cache[string, []byte] = (*Map[string, []byte])(nil)

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V)}
}

func (c *Map[K, V]) Get(_ context.Context, key K) (V, error) {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return v, layercache.ErrNotFound
	}
	return v, nil
}

// Set ignores ttl.
func (c *Map[K, V]) Set(_ context.Context, key K, value V, _ time.Duration) error {
	c.mu.Lock()
	c.m[key] = value
	c.mu.Unlock()
	return nil
}

func (c *Map[K, V]) Delete(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[key]; !ok {
		return layercache.ErrNotFound
	}
	delete(c.m, key)
	return nil
}

func (c *Map[K, V]) Contains(_ context.Context, key K) (bool, error) {
	c.mu.RLock()
	_, ok := c.m[key]
	c.mu.RUnlock()
	return ok, nil
}

func (c *Map[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Keys returns a snapshot of the stored keys in no particular order.
func (c *Map[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]K, 0, len(c.m))
	for k := range c.m {
		out = append(out, k)
	}
	return out
}

func (c *Map[K, V]) Clear() {
	c.mu.Lock()
	c.m = make(map[K]V)
	c.mu.Unlock()
}
