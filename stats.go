package layercache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// StatsSnapshot is a point-in-time copy of a Stats layer's counters.
type StatsSnapshot struct {
	Tests    uint64  `json:"tests"`     // Contains calls
	TestHits uint64  `json:"test_hits"` // Contains calls that reported true
	Reads    uint64  `json:"reads"`     // Get calls
	Hits     uint64  `json:"hits"`      // Get calls that returned a value
	Misses   uint64  `json:"misses"`    // Get calls that returned ErrNotFound
	Writes   uint64  `json:"writes"`
	Deletes  uint64  `json:"deletes"`
	HitRate  float64 `json:"hit_rate"`
}

// Stats counts reads, hits and misses around the inner cache. Counters only
// grow; Reset is the sole way to bring them back to zero.
type Stats[K, V any] struct {
	inner Cache[K, V]

	tests    atomic.Uint64
	testHits atomic.Uint64
	reads    atomic.Uint64
	hits     atomic.Uint64
	misses   atomic.Uint64
	writes   atomic.Uint64
	deletes  atomic.Uint64
}

var (
	_ Cache[string, int] = (*Stats[string, int])(nil)
	_ Statser            = (*Stats[string, int])(nil)
)

func NewStats[K, V any](inner Cache[K, V]) *Stats[K, V] {
	return &Stats[K, V]{inner: inner}
}

func (s *Stats[K, V]) Get(ctx context.Context, key K) (V, error) {
	s.reads.Add(1)
	v, err := s.inner.Get(ctx, key)
	switch {
	case err == nil:
		s.hits.Add(1)
	case errors.Is(err, ErrNotFound):
		s.misses.Add(1)
	}
	return v, err
}

func (s *Stats[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	s.writes.Add(1)
	return s.inner.Set(ctx, key, value, ttl)
}

func (s *Stats[K, V]) Delete(ctx context.Context, key K) error {
	s.deletes.Add(1)
	return s.inner.Delete(ctx, key)
}

func (s *Stats[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	s.tests.Add(1)
	ok, err := s.inner.Contains(ctx, key)
	if ok && err == nil {
		s.testHits.Add(1)
	}
	return ok, err
}

// HitRatio is hits / reads, 0 before the first read.
func (s *Stats[K, V]) HitRatio() float64 {
	return ratio(s.hits.Load(), s.reads.Load())
}

func (s *Stats[K, V]) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		Tests:    s.tests.Load(),
		TestHits: s.testHits.Load(),
		Reads:    s.reads.Load(),
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Writes:   s.writes.Load(),
		Deletes:  s.deletes.Load(),
	}
	snap.HitRate = ratio(snap.Hits, snap.Reads)
	return snap
}

func (s *Stats[K, V]) Reset() {
	s.tests.Store(0)
	s.testHits.Store(0)
	s.reads.Store(0)
	s.hits.Store(0)
	s.misses.Store(0)
	s.writes.Store(0)
	s.deletes.Store(0)
}

func ratio(hits, reads uint64) float64 {
	return float64(hits) / float64(max(reads, 1))
}
