// Package lru adapts hashicorp/golang-lru/v2's expirable LRU. Capacity and TTL
// are the store's policy, fixed at construction; per-call ttl is ignored.
package lru

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/unkn0wn-root/layercache"
)

type Config struct {
	Size int           // max entries; 0 => unbounded
	TTL  time.Duration // per-cache expiration; 0 => none
}

type LRU[K comparable, V any] struct {
	c *expirable.LRU[K, V]
}

var _ layercache.Cache[string, []byte] = (*LRU[string, []byte])(nil)

func New[K comparable, V any](cfg Config) *LRU[K, V] {
	return &LRU[K, V]{c: expirable.NewLRU[K, V](cfg.Size, nil, cfg.TTL)}
}

// NewWithCache adapts an LRU built by the caller (e.g. with an eviction callback).
func NewWithCache[K comparable, V any](c *expirable.LRU[K, V]) *LRU[K, V] {
	return &LRU[K, V]{c: c}
}

func (l *LRU[K, V]) Get(_ context.Context, key K) (V, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return v, layercache.ErrNotFound
	}
	return v, nil
}

func (l *LRU[K, V]) Set(_ context.Context, key K, value V, _ time.Duration) error {
	l.c.Add(key, value)
	return nil
}

func (l *LRU[K, V]) Delete(_ context.Context, key K) error {
	if !l.c.Remove(key) {
		return layercache.ErrNotFound
	}
	return nil
}

func (l *LRU[K, V]) Contains(_ context.Context, key K) (bool, error) {
	return l.c.Contains(key), nil
}

func (l *LRU[K, V]) Len() int { return l.c.Len() }
