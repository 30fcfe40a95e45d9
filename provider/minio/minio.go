// Package minio stores one object per key in a MinIO/S3 bucket.
//
// Object stores have no native per-object TTL, so the deadline travels as
// user metadata and is enforced lazily on read. Expired objects are removed
// by the read that finds them.
package minio

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/unkn0wn-root/layercache"
)

const (
	backend = "minio"

	// MaxKeyLength is the S3 object name limit in bytes.
	MaxKeyLength = 1024

	expiresMeta = "Layercache-Expires"
	escape      = "~"
)

type Config struct {
	// Endpoint is the server address (e.g. "localhost:9000").
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Bucket is required.
	Bucket string
	// Prefix is prepended to every object name.
	Prefix string
	// DefaultTTL applies when Set gets ttl <= 0; 0 => no expiry.
	DefaultTTL time.Duration

	// Client is an optional pre-configured client; Endpoint and keys are then ignored.
	Client *minio.Client
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return &layercache.ConfigError{Field: "minio.Bucket", Reason: "required"}
	}
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return &layercache.ConfigError{Field: "minio.Endpoint", Reason: "required when Client is nil"}
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return &layercache.ConfigError{Field: "minio.Credentials", Reason: "access and secret key required when Client is nil"}
	}
	return nil
}

// objectStore is the slice of the S3 API the cache needs.
type objectStore interface {
	put(ctx context.Context, name string, data []byte, meta map[string]string) error
	get(ctx context.Context, name string) ([]byte, map[string]string, error)
	stat(ctx context.Context, name string) (map[string]string, error)
	remove(ctx context.Context, name string) error
}

type Store struct {
	obj    objectStore
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ layercache.Cache[string, []byte] = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, &layercache.ConfigError{Field: "minio", Reason: "new client", Err: err}
		}
	}
	return newStore(&bucket{c: client, name: cfg.Bucket}, cfg.Prefix, cfg.DefaultTTL), nil
}

func newStore(obj objectStore, prefix string, ttl time.Duration) *Store {
	return &Store{obj: obj, prefix: prefix, ttl: ttl, now: time.Now}
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	b, ok := s.obj.(*bucket)
	if !ok {
		return nil
	}
	exists, err := b.c.BucketExists(ctx, b.name)
	if err != nil {
		return layercache.NewBackendError(backend, "bucket_exists", b.name, err)
	}
	if exists {
		return nil
	}
	return layercache.NewBackendError(backend, "make_bucket", b.name,
		b.c.MakeBucket(ctx, b.name, minio.MakeBucketOptions{}))
}

// objectName maps key to an object name. Valid UTF-8 keys are kept readable;
// anything else, or a key starting with the escape marker, is base64url
// encoded behind "~".
func (s *Store) objectName(key string) (string, error) {
	name := key
	if !utf8.ValidString(key) || strings.HasPrefix(key, escape) || key == "" {
		name = escape + base64.RawURLEncoding.EncodeToString([]byte(key))
	}
	name = s.prefix + name
	if len(name) > MaxKeyLength {
		return "", fmt.Errorf("%w: %d > %d bytes", layercache.ErrKeyTooLong, len(name), MaxKeyLength)
	}
	return name, nil
}

func (s *Store) expired(meta map[string]string) bool {
	v, ok := lookupMeta(meta, expiresMeta)
	if !ok {
		return false
	}
	ns, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false
	}
	return !s.now().Before(time.Unix(0, ns))
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := s.objectName(key)
	if err != nil {
		return nil, layercache.NewBackendError(backend, "get", key, err)
	}
	data, meta, err := s.obj.get(ctx, name)
	if err != nil {
		if layercache.IsNotFound(err) {
			return nil, err
		}
		return nil, layercache.NewBackendError(backend, "get", key, err)
	}
	if s.expired(meta) {
		_ = s.obj.remove(ctx, name)
		return nil, layercache.ErrNotFound
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	name, err := s.objectName(key)
	if err != nil {
		return layercache.NewBackendError(backend, "set", key, err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	var meta map[string]string
	if ttl > 0 {
		meta = map[string]string{expiresMeta: strconv.FormatInt(s.now().Add(ttl).UnixNano(), 10)}
	}
	return layercache.NewBackendError(backend, "set", key, s.obj.put(ctx, name, value, meta))
}

// Delete stats first: S3 removal is idempotent and cannot report absence.
func (s *Store) Delete(ctx context.Context, key string) error {
	found, err := s.Contains(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return layercache.ErrNotFound
	}
	name, _ := s.objectName(key)
	return layercache.NewBackendError(backend, "delete", key, s.obj.remove(ctx, name))
}

func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	name, err := s.objectName(key)
	if err != nil {
		return false, layercache.NewBackendError(backend, "stat", key, err)
	}
	meta, err := s.obj.stat(ctx, name)
	switch {
	case layercache.IsNotFound(err):
		return false, nil
	case err != nil:
		return false, layercache.NewBackendError(backend, "stat", key, err)
	}
	return !s.expired(meta), nil
}

// lookupMeta matches case-insensitively; S3 canonicalizes metadata keys.
func lookupMeta(meta map[string]string, key string) (string, bool) {
	for k, v := range meta {
		if strings.EqualFold(k, key) || strings.EqualFold(k, "X-Amz-Meta-"+key) {
			return v, true
		}
	}
	return "", false
}

// bucket implements objectStore over a real client.
type bucket struct {
	c    *minio.Client
	name string
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return layercache.ErrNotFound
	}
	return err
}

func (b *bucket) put(ctx context.Context, name string, data []byte, meta map[string]string) error {
	_, err := b.c.PutObject(ctx, b.name, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: meta,
	})
	return err
}

func (b *bucket) get(ctx context.Context, name string) ([]byte, map[string]string, error) {
	obj, err := b.c.GetObject(ctx, b.name, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, translate(err)
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		return nil, nil, translate(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, nil, translate(err)
	}
	return data, info.UserMetadata, nil
}

func (b *bucket) stat(ctx context.Context, name string) (map[string]string, error) {
	info, err := b.c.StatObject(ctx, b.name, name, minio.StatObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	return info.UserMetadata, nil
}

func (b *bucket) remove(ctx context.Context, name string) error {
	return translate(b.c.RemoveObject(ctx, b.name, name, minio.RemoveObjectOptions{}))
}
