// Package provider holds the leaf adapters: components with no inner cache
// that translate the layercache contract into calls on a backing store.
//
//   - memory:    plain in-process map, no eviction
//   - lru:       in-process LRU with per-cache TTL (hashicorp/golang-lru/v2)
//   - ristretto: in-process byte store with cost-based admission and per-entry TTL
//   - bigcache:  in-process byte store with a global life window
//   - memcached: size-limited remote store (~250 byte keys, ~1 MiB values)
//   - redis:     large-value remote store with native per-entry expiration
//   - minio:     S3-compatible object store, expiry kept in object metadata
//
// Adapters MUST be byte-for-byte transparent: Get returns exactly the bytes
// passed to Set. Eviction and expiration policy belongs to the store; adapters
// never implement their own. Store/network failures are returned as
// *layercache.BackendError, absent keys as layercache.ErrNotFound.
package provider

import "github.com/unkn0wn-root/layercache"

// ByteStore is the shape shared by the byte-oriented adapters.
type ByteStore = layercache.Cache[string, []byte]

// Closer is implemented by adapters that own resources.
type Closer interface {
	Close() error
}
