// Package config loads a cache stack description from a file and the
// environment, and assembles the matching layers.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreConfig selects and tunes one leaf adapter.
type StoreConfig struct {
	// Type is one of memory, lru, ristretto, bigcache, redis, memcached, minio.
	Type   string        `mapstructure:"type"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`

	// lru
	Size int `mapstructure:"size"`

	// ristretto
	NumCounters int64 `mapstructure:"num_counters"`
	MaxCost     int64 `mapstructure:"max_cost"`
	BufferItems int64 `mapstructure:"buffer_items"`

	// bigcache
	Shards             int `mapstructure:"shards"`
	HardMaxCacheSizeMB int `mapstructure:"hard_max_cache_size_mb"`

	// redis
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`

	// memcached
	Servers      []string `mapstructure:"servers"`
	MaxValueSize int      `mapstructure:"max_value_size"`

	// minio
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

type AutoPrefixConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Encoding string `mapstructure:"encoding"`
	Sep      string `mapstructure:"sep"`
	// Counter is "local" or "redis"; redis needs a redis client in Deps or
	// a redis primary store.
	Counter string `mapstructure:"counter"`
}

type EncryptConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Secret     string `mapstructure:"secret"`
	DigestSize int    `mapstructure:"digest_size"`
	Cipher     string `mapstructure:"cipher"`
	Integrity  bool   `mapstructure:"integrity"`
}

// Config describes a whole stack. Layers are applied bottom up in the order
// store, two-level, lock, encrypt, prefix, stats, debug, trace.
type Config struct {
	Name       string           `mapstructure:"name"`
	Store      StoreConfig      `mapstructure:"store"`
	Secondary  *StoreConfig     `mapstructure:"secondary"`
	Resilient  bool             `mapstructure:"resilient"`
	Lock       bool             `mapstructure:"lock"`
	Encrypt    EncryptConfig    `mapstructure:"encrypt"`
	Prefix     string           `mapstructure:"prefix"`
	AutoPrefix AutoPrefixConfig `mapstructure:"auto_prefix"`
	Stats      bool             `mapstructure:"stats"`
	Debug      bool             `mapstructure:"debug"`
	Trace      bool             `mapstructure:"trace"`
}

// EnvPrefix is the prefix of environment overrides, e.g.
// LAYERCACHE_STORE_TYPE=redis.
const EnvPrefix = "LAYERCACHE"

// Load reads path (any format viper understands) and applies environment
// overrides. An empty path or a missing file yields defaults plus env.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "layercache")

	// keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("store.size", 0)
	v.SetDefault("store.num_counters", int64(1e6))
	v.SetDefault("store.max_cost", int64(64<<20))
	v.SetDefault("store.buffer_items", int64(64))
	v.SetDefault("store.shards", 1024)
	v.SetDefault("store.hard_max_cache_size_mb", 0)
	v.SetDefault("store.address", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.database", 0)
	v.SetDefault("store.servers", []string{})
	v.SetDefault("store.max_value_size", 0)
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.use_ssl", false)
	v.SetDefault("store.bucket", "")

	v.SetDefault("resilient", false)
	v.SetDefault("lock", false)

	v.SetDefault("encrypt.enabled", false)
	v.SetDefault("encrypt.secret", "")
	v.SetDefault("encrypt.digest_size", 16)
	v.SetDefault("encrypt.cipher", "")
	v.SetDefault("encrypt.integrity", false)

	v.SetDefault("prefix", "")
	v.SetDefault("auto_prefix.enabled", false)
	v.SetDefault("auto_prefix.encoding", "b64")
	v.SetDefault("auto_prefix.sep", ".")
	v.SetDefault("auto_prefix.counter", "local")

	v.SetDefault("stats", true)
	v.SetDefault("debug", false)
	v.SetDefault("trace", false)
}
