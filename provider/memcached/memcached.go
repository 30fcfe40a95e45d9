// Package memcached adapts bradfitz/gomemcache as the size-limited store.
//
// Memcached keys are at most 250 bytes of printable, space-free ASCII. Keys
// that already satisfy this are used as is; any other key, and any key that
// starts with the escape marker '~', is stored as '~' + ascii85(key). ascii85
// never emits '~', so the mapping stays injective.
package memcached

import (
	"context"
	"encoding/ascii85"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/layercache"
)

const (
	backend = "memcached"

	// MaxKeyLength is memcached's key length limit.
	MaxKeyLength = 250
	// DefaultMaxValueSize is memcached's default item size limit (-I 1m).
	DefaultMaxValueSize = 1 << 20

	escape = '~'

	// relative expirations beyond 30 days are read as unix timestamps
	maxRelativeExpiration = 30 * 24 * time.Hour
)

// Client is the subset of *memcache.Client used by the adapter.
type Client interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

var _ Client = (*memcache.Client)(nil)

type Config struct {
	Client Client
	// Prefix is prepended after key encoding (must itself be a legal key part).
	Prefix string
	// DefaultTTL applies when Set gets ttl <= 0; 0 => no expiry.
	DefaultTTL time.Duration
	// MaxValueSize rejects larger values before the round trip; 0 => 1 MiB.
	MaxValueSize int
}

type Memcached struct {
	mc       Client
	prefix   string
	ttl      time.Duration
	maxValue int
	now      func() time.Time
}

var _ layercache.Cache[string, []byte] = (*Memcached)(nil)

func New(cfg Config) (*Memcached, error) {
	if cfg.Client == nil {
		return nil, &layercache.ConfigError{Field: "memcached.Client", Reason: "nil client"}
	}
	if !legal(cfg.Prefix) || len(cfg.Prefix) >= MaxKeyLength {
		return nil, &layercache.ConfigError{Field: "memcached.Prefix", Reason: "must be short printable ASCII without spaces"}
	}
	m := &Memcached{
		mc:       cfg.Client,
		prefix:   cfg.Prefix,
		ttl:      cfg.DefaultTTL,
		maxValue: cfg.MaxValueSize,
		now:      time.Now,
	}
	if m.maxValue <= 0 {
		m.maxValue = DefaultMaxValueSize
	}
	return m, nil
}

// Dial builds a client for servers ("host:port") and wraps it.
func Dial(cfg Config, servers ...string) (*Memcached, error) {
	cfg.Client = memcache.New(servers...)
	return New(cfg)
}

func legal(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c <= ' ' || c >= 0x7f {
			return false
		}
	}
	return true
}

// EncodeKey returns the key as stored in memcached, prefix included.
func (m *Memcached) EncodeKey(key string) (string, error) {
	k := key
	if len(key) == 0 || key[0] == escape || !legal(key) || len(m.prefix)+len(key) > MaxKeyLength {
		dst := make([]byte, ascii85.MaxEncodedLen(len(key)))
		k = string(escape) + string(dst[:ascii85.Encode(dst, []byte(key))])
	}
	k = m.prefix + k
	if len(k) > MaxKeyLength {
		return "", fmt.Errorf("%w: %d > %d bytes after encoding", layercache.ErrKeyTooLong, len(k), MaxKeyLength)
	}
	return k, nil
}

func (m *Memcached) Get(_ context.Context, key string) ([]byte, error) {
	k, err := m.EncodeKey(key)
	if err != nil {
		return nil, layercache.NewBackendError(backend, "get", key, err)
	}
	it, err := m.mc.Get(k)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, layercache.ErrNotFound
	}
	if err != nil {
		return nil, layercache.NewBackendError(backend, "get", key, err)
	}
	return it.Value, nil
}

func (m *Memcached) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	k, err := m.EncodeKey(key)
	if err != nil {
		return layercache.NewBackendError(backend, "set", key, err)
	}
	if len(value) > m.maxValue {
		return layercache.NewBackendError(backend, "set", key,
			fmt.Errorf("%w: %d > %d", layercache.ErrValueTooLarge, len(value), m.maxValue))
	}
	if ttl <= 0 {
		ttl = m.ttl
	}
	return layercache.NewBackendError(backend, "set", key, m.mc.Set(&memcache.Item{
		Key:        k,
		Value:      value,
		Expiration: m.expiration(ttl),
	}))
}

func (m *Memcached) Delete(_ context.Context, key string) error {
	k, err := m.EncodeKey(key)
	if err != nil {
		return layercache.NewBackendError(backend, "delete", key, err)
	}
	err = m.mc.Delete(k)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return layercache.ErrNotFound
	}
	return layercache.NewBackendError(backend, "delete", key, err)
}

func (m *Memcached) Contains(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case layercache.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// expiration converts ttl to memcached's seconds-or-timestamp form.
func (m *Memcached) expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > maxRelativeExpiration {
		return int32(m.now().Add(ttl).Unix())
	}
	secs := int32(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return secs
}
