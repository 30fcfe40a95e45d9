package layercache

import (
	"context"
	"sync"
	"time"
)

// Locked serializes every operation on the inner cache behind one lock, held
// for the full call. Use it when several namespaced views share one physical
// store and callers need check-then-act sequences to be atomic across them:
// a lock scoped to a single memoized function does not cover the others.
//
// Put it as the last layer before the store so all views go through it.
type Locked[K, V any] struct {
	inner Cache[K, V]
	mu    sync.Locker
}

var _ Cache[string, int] = (*Locked[string, int])(nil)

// NewLocked wraps inner with lock; nil selects a new *sync.Mutex.
func NewLocked[K, V any](inner Cache[K, V], lock sync.Locker) *Locked[K, V] {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Locked[K, V]{inner: inner, mu: lock}
}

// Do runs fn while holding the lock, giving callers an atomic compound
// sequence over the unlocked inner cache. fn must not call back into l.
func (l *Locked[K, V]) Do(fn func(inner Cache[K, V]) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.inner)
}

func (l *Locked[K, V]) Get(ctx context.Context, key K) (V, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Get(ctx, key)
}

func (l *Locked[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Set(ctx, key, value, ttl)
}

func (l *Locked[K, V]) Delete(ctx context.Context, key K) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Delete(ctx, key)
}

func (l *Locked[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Contains(ctx, key)
}
