// Package ristretto adapts dgraph-io/ristretto as an in-process byte store
// with cost-based admission and per-entry TTL.
package ristretto

import (
	"context"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/layercache"
)

const backend = "ristretto"

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool

	// DefaultTTL applies when Set gets ttl <= 0; 0 => no expiry.
	DefaultTTL time.Duration
	// Cost computes the admission cost of a value; nil => len(value).
	Cost func(key string, value []byte) int64
	// Hooks receives StoreRejected when admission refuses a write.
	Hooks layercache.Hooks
}

type Provider struct {
	c     *rc.Cache
	ttl   time.Duration
	cost  func(string, []byte) int64
	hooks layercache.Hooks
}

var _ layercache.Cache[string, []byte] = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, &layercache.ConfigError{Field: "ristretto", Reason: "NumCounters, MaxCost and BufferItems must be > 0"}
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,

		// cost is the caller's measure; don't add ristretto's bookkeeping
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, &layercache.ConfigError{Field: "ristretto", Reason: "new cache", Err: err}
	}
	p := &Provider{c: c, ttl: cfg.DefaultTTL, cost: cfg.Cost, hooks: cfg.Hooks}
	if p.cost == nil {
		p.cost = func(_ string, v []byte) int64 { return int64(len(v)) }
	}
	if p.hooks == nil {
		p.hooks = layercache.NopHooks{}
	}
	return p, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, layercache.ErrNotFound
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, layercache.ErrNotFound
	}
	return b, nil
}

// Set waits for ristretto's write buffer so a following Get observes the value.
// A write refused by admission is not an error; it is reported to Hooks and
// behaves like an immediate eviction.
func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = p.ttl
	}
	if value == nil {
		value = []byte{}
	}
	if p.c.SetWithTTL(key, value, p.cost(key, value), ttl) {
		p.c.Wait()
		// admission is decided while draining the buffer
		if _, ok := p.c.Get(key); ok {
			return nil
		}
	}
	p.hooks.StoreRejected(backend, key)
	return nil
}

func (p *Provider) Delete(_ context.Context, key string) error {
	if _, ok := p.c.Get(key); !ok {
		return layercache.ErrNotFound
	}
	p.c.Del(key)
	return nil
}

func (p *Provider) Contains(_ context.Context, key string) (bool, error) {
	_, ok := p.c.Get(key)
	return ok, nil
}

func (p *Provider) Close() error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters (nil unless Config.Metrics).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
