// Package bigcache adapts allegro/bigcache as an in-process byte store.
// BigCache has no per-entry TTL: every entry lives for LifeWindow.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/layercache"
)

const backend = "bigcache"

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	Shards             int
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

type Provider struct {
	c *bc.BigCache
}

var _ layercache.Cache[string, []byte] = (*Provider)(nil)

// New starts the store; ctx bounds its background cleanup goroutine.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.LifeWindow <= 0 {
		return nil, &layercache.ConfigError{Field: "bigcache.LifeWindow", Reason: "must be > 0"}
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, &layercache.ConfigError{Field: "bigcache", Reason: "new cache", Err: err}
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, layercache.ErrNotFound
	}
	if err != nil {
		return nil, layercache.NewBackendError(backend, "get", key, err)
	}
	return b, nil
}

// Set ignores ttl; the store-wide LifeWindow applies.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return layercache.NewBackendError(backend, "set", key, p.c.Set(key, value))
}

func (p *Provider) Delete(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return layercache.ErrNotFound
	}
	return layercache.NewBackendError(backend, "delete", key, err)
}

func (p *Provider) Contains(ctx context.Context, key string) (bool, error) {
	_, err := p.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case layercache.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (p *Provider) Len() int { return p.c.Len() }

func (p *Provider) Close() error { return p.c.Close() }
