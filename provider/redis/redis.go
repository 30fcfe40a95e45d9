// Package redis adapts a go-redis client as the large-value store: values up
// to 512 MiB and native per-entry expiration.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/layercache"
)

const backend = "redis"

// MaxValueSize is the largest string value Redis accepts.
const MaxValueSize = 512 << 20

var ErrNilClient = errors.New("redis provider: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	ttl         time.Duration
	closeClient bool
}

var _ layercache.Cache[string, []byte] = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// Prefix is prepended to every key after any upper-layer encoding.
	Prefix string
	// DefaultTTL applies when Set gets ttl <= 0; 0 => layercache.DefaultTTL.
	// Use a negative value to store without expiry.
	DefaultTTL  time.Duration
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ttl := cfg.DefaultTTL
	switch {
	case ttl == 0:
		ttl = layercache.DefaultTTL
	case ttl < 0:
		ttl = 0 // SET without EX: no expiry
	}
	return &Redis{rdb: cfg.Client, prefix: cfg.Prefix, ttl: ttl, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) key(k string) string { return p.prefix + k }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := p.rdb.Get(ctx, p.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, layercache.ErrNotFound
	}
	if err != nil {
		return nil, layercache.NewBackendError(backend, "get", key, err)
	}
	return b, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if len(value) > MaxValueSize {
		return layercache.NewBackendError(backend, "set", key,
			fmt.Errorf("%w: %d > %d", layercache.ErrValueTooLarge, len(value), MaxValueSize))
	}
	if ttl <= 0 {
		ttl = p.ttl
	}
	return layercache.NewBackendError(backend, "set", key, p.rdb.Set(ctx, p.key(key), value, ttl).Err())
}

func (p *Redis) Delete(ctx context.Context, key string) error {
	n, err := p.rdb.Del(ctx, p.key(key)).Result()
	if err != nil {
		return layercache.NewBackendError(backend, "delete", key, err)
	}
	if n == 0 {
		return layercache.ErrNotFound
	}
	return nil
}

func (p *Redis) Contains(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, p.key(key)).Result()
	if err != nil {
		return false, layercache.NewBackendError(backend, "exists", key, err)
	}
	return n > 0, nil
}

// TTL reports the remaining lifetime of key as seen by Redis.
func (p *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := p.rdb.TTL(ctx, p.key(key)).Result()
	if err != nil {
		return 0, layercache.NewBackendError(backend, "ttl", key, err)
	}
	if d == -2 {
		return 0, layercache.ErrNotFound
	}
	return d, nil
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close() error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
