package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	minio "github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/layercache"
	"github.com/unkn0wn-root/layercache/codec"
	"github.com/unkn0wn-root/layercache/counter"
	"github.com/unkn0wn-root/layercache/encrypt"
	"github.com/unkn0wn-root/layercache/metrics"
	"github.com/unkn0wn-root/layercache/provider"
	"github.com/unkn0wn-root/layercache/provider/bigcache"
	"github.com/unkn0wn-root/layercache/provider/lru"
	"github.com/unkn0wn-root/layercache/provider/memcached"
	"github.com/unkn0wn-root/layercache/provider/memory"
	minioprov "github.com/unkn0wn-root/layercache/provider/minio"
	"github.com/unkn0wn-root/layercache/provider/redis"
	"github.com/unkn0wn-root/layercache/provider/ristretto"
	"github.com/unkn0wn-root/layercache/tracing"
)

// Deps carries everything Build cannot create from plain configuration.
// Clients given here are shared and never closed by the Stack.
type Deps struct {
	Logger    layercache.Logger
	Hooks     layercache.Hooks
	Redis     goredis.UniversalClient
	Memcached memcached.Client
	Minio     *minio.Client
	// Collector, when set, receives the stack's Stats layer under cfg.Name.
	Collector *metrics.Collector
}

// Stack is an assembled cache plus the resources it owns.
type Stack struct {
	layercache.Cache[string, []byte]

	// Stats is nil unless cfg.Stats is set.
	Stats *layercache.Stats[string, []byte]

	closers []provider.Closer
}

// Close releases stores Build created, in reverse order.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Build assembles the stack cfg describes. ctx bounds construction and the
// background work of stores that run any.
func Build(ctx context.Context, cfg *Config, deps Deps) (*Stack, error) {
	if cfg == nil {
		return nil, &layercache.ConfigError{Field: "config", Reason: "nil"}
	}
	log := deps.Logger
	if log == nil {
		log = layercache.NopLogger{}
	}
	hooks := deps.Hooks
	if hooks == nil {
		hooks = layercache.NopHooks{}
	}

	st := &Stack{}
	fail := func(err error) (*Stack, error) {
		_ = st.Close()
		return nil, err
	}

	var rdb goredis.UniversalClient = deps.Redis
	var c layercache.Cache[string, []byte]
	primary, err := st.store(ctx, "store", cfg.Store, deps, hooks, &rdb)
	if err != nil {
		return fail(err)
	}
	c = primary

	if cfg.Secondary != nil {
		secondary, err := st.store(ctx, "secondary", *cfg.Secondary, deps, hooks, &rdb)
		if err != nil {
			return fail(err)
		}
		c = layercache.NewTwoLevel(primary, secondary, layercache.TwoLevelOptions{
			Resilient: cfg.Resilient,
			Logger:    log,
			Hooks:     hooks,
		})
	}

	if cfg.Lock {
		c = layercache.NewLocked(c, nil)
	}

	if cfg.Encrypt.Enabled {
		enc, err := encrypt.New(layercache.NewBytes(c), encrypt.Options{
			Secret:     []byte(cfg.Encrypt.Secret),
			DigestSize: cfg.Encrypt.DigestSize,
			Cipher:     encrypt.Cipher(cfg.Encrypt.Cipher),
			Integrity:  cfg.Encrypt.Integrity,
			Logger:     log,
			Hooks:      hooks,
		})
		if err != nil {
			return fail(prefixField("encrypt", err))
		}
		c = layercache.NewToBytes[string, []byte](enc, layercache.ToBytesOptions[string, []byte]{
			KeyCodec:   codec.String{},
			ValueCodec: codec.Bytes{},
		})
	}

	switch {
	case cfg.AutoPrefix.Enabled:
		ctr, err := prefixCounter(cfg, rdb)
		if err != nil {
			return fail(err)
		}
		p, err := layercache.NewAutoPrefixed(ctx, c, layercache.AutoPrefixOptions{
			Sep:      cfg.AutoPrefix.Sep,
			Encoding: cfg.AutoPrefix.Encoding,
			Counter:  ctr,
		})
		if err != nil {
			return fail(prefixField("auto_prefix", err))
		}
		c = p
	case cfg.Prefix != "":
		c = layercache.NewPrefixed(c, cfg.Prefix)
	}

	if cfg.Stats {
		st.Stats = layercache.NewStats(c)
		c = st.Stats
		if deps.Collector != nil {
			deps.Collector.Add(cfg.Name, st.Stats)
		}
	}
	if cfg.Debug {
		c = layercache.NewDebug(c, log, cfg.Name)
	}
	if cfg.Trace {
		c = tracing.New(c, tracing.Options{Name: cfg.Name})
	}

	st.Cache = c
	log.Debug("cache stack built", layercache.Fields{
		"name":      cfg.Name,
		"store":     cfg.Store.Type,
		"two_level": cfg.Secondary != nil,
		"encrypted": cfg.Encrypt.Enabled,
	})
	return st, nil
}

func prefixCounter(cfg *Config, rdb goredis.UniversalClient) (counter.Counter, error) {
	switch strings.ToLower(cfg.AutoPrefix.Counter) {
	case "", "local":
		return counter.Default, nil
	case "redis":
		if rdb == nil {
			return nil, &layercache.ConfigError{Field: "auto_prefix.counter", Reason: "redis counter needs a redis client"}
		}
		return counter.NewRedis(rdb, cfg.Name), nil
	default:
		return nil, &layercache.ConfigError{Field: "auto_prefix.counter", Reason: "unknown counter " + cfg.AutoPrefix.Counter}
	}
}

// store builds one leaf adapter. A redis client it dials is reported back
// through rdb so later components can share it.
func (st *Stack) store(ctx context.Context, field string, sc StoreConfig, deps Deps, hooks layercache.Hooks, rdb *goredis.UniversalClient) (layercache.Cache[string, []byte], error) {
	var (
		c   layercache.Cache[string, []byte]
		err error
	)
	switch strings.ToLower(sc.Type) {
	case "", "memory":
		c = memory.New[string, []byte]()
	case "lru":
		c = lru.New[string, []byte](lru.Config{Size: sc.Size, TTL: sc.TTL})
	case "ristretto":
		var p *ristretto.Provider
		p, err = ristretto.New(ristretto.Config{
			NumCounters: sc.NumCounters,
			MaxCost:     sc.MaxCost,
			BufferItems: sc.BufferItems,
			DefaultTTL:  sc.TTL,
			Hooks:       hooks,
		})
		if err == nil {
			st.closers = append(st.closers, p)
			c = p
		}
	case "bigcache":
		var p *bigcache.Provider
		p, err = bigcache.New(ctx, bigcache.Config{
			LifeWindow:         sc.TTL,
			Shards:             sc.Shards,
			HardMaxCacheSizeMB: sc.HardMaxCacheSizeMB,
		})
		if err == nil {
			st.closers = append(st.closers, p)
			c = p
		}
	case "redis":
		client, owned := *rdb, false
		if sc.Address != "" {
			client = goredis.NewClient(&goredis.Options{Addr: sc.Address, Password: sc.Password, DB: sc.Database})
			owned = true
		}
		var p *redis.Redis
		p, err = redis.New(redis.Config{Client: client, Prefix: sc.Prefix, DefaultTTL: sc.TTL, CloseClient: owned})
		if err == nil {
			st.closers = append(st.closers, p)
			if *rdb == nil {
				*rdb = client
			}
			c = p
		}
	case "memcached":
		mcfg := memcached.Config{Client: deps.Memcached, Prefix: sc.Prefix, DefaultTTL: sc.TTL, MaxValueSize: sc.MaxValueSize}
		if mcfg.Client == nil && len(sc.Servers) > 0 {
			c, err = memcached.Dial(mcfg, sc.Servers...)
		} else {
			c, err = memcached.New(mcfg)
		}
	case "minio":
		var s *minioprov.Store
		s, err = minioprov.New(minioprov.Config{
			Endpoint:   sc.Endpoint,
			AccessKey:  sc.AccessKey,
			SecretKey:  sc.SecretKey,
			UseSSL:     sc.UseSSL,
			Bucket:     sc.Bucket,
			Prefix:     sc.Prefix,
			DefaultTTL: sc.TTL,
			Client:     deps.Minio,
		})
		if err == nil {
			err = s.EnsureBucket(ctx)
			c = s
		}
	default:
		return nil, &layercache.ConfigError{Field: field + ".type", Reason: "unknown store " + sc.Type}
	}
	if err != nil {
		return nil, prefixField(field, err)
	}
	return c, nil
}

// prefixField qualifies a ConfigError's field with the config section it
// came from; other errors are wrapped.
func prefixField(section string, err error) error {
	var ce *layercache.ConfigError
	if errors.As(err, &ce) {
		return &layercache.ConfigError{Field: section + "." + ce.Field, Reason: ce.Reason, Err: ce.Err}
	}
	return fmt.Errorf("config: %s: %w", section, err)
}
