package layercache

import (
	"context"
	"time"
)

// Cache is the mapping contract shared by every store adapter and wrapper layer.
// K is the key type, V the value type. Layers own exactly one inner Cache
// (Two-Level owns two) and forward to it after applying their own transform.
type Cache[K, V any] interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key K) (V, error)

	// Set stores value under key. ttl <= 0 selects the layer or store default;
	// stores without per-entry expiration ignore it.
	Set(ctx context.Context, key K, value V, ttl time.Duration) error

	// Delete removes key. Returns ErrNotFound when the key is absent.
	Delete(ctx context.Context, key K) error

	// Contains reports whether key is present without returning its value.
	Contains(ctx context.Context, key K) (bool, error)
}

// Statser is implemented by layers that keep hit/miss statistics.
type Statser interface {
	Stats() StatsSnapshot
	HitRatio() float64
	Reset()
}
