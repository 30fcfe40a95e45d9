package layercache

import (
	"context"
	"encoding/ascii85"
	"fmt"
	"time"

	"github.com/unkn0wn-root/layercache/codec"
)

// ToBytesOptions choose how ToBytes serializes keys and values.
type ToBytesOptions[K, V any] struct {
	KeyCodec   codec.Codec[K] // nil => codec.JSON[K]; must be deterministic
	ValueCodec codec.Codec[V] // nil => codec.JSON[V]
}

// ToBytes presents typed keys and values over a byte-keyed, byte-valued cache,
// so object-keyed layers can sit on top of byte-only layers such as encrypt.
type ToBytes[K, V any] struct {
	inner Cache[[]byte, []byte]
	kc    codec.Codec[K]
	vc    codec.Codec[V]
}

var _ Cache[string, int] = (*ToBytes[string, int])(nil)

func NewToBytes[K, V any](inner Cache[[]byte, []byte], opts ToBytesOptions[K, V]) *ToBytes[K, V] {
	t := &ToBytes[K, V]{inner: inner, kc: opts.KeyCodec, vc: opts.ValueCodec}
	if t.kc == nil {
		t.kc = codec.JSON[K]{}
	}
	if t.vc == nil {
		t.vc = codec.JSON[V]{}
	}
	return t
}

func (t *ToBytes[K, V]) key(k K) ([]byte, error) {
	b, err := t.kc.Encode(k)
	if err != nil {
		return nil, &ConfigError{Field: "key", Reason: "cannot encode to bytes", Err: err}
	}
	return b, nil
}

func (t *ToBytes[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	k, err := t.key(key)
	if err != nil {
		return zero, err
	}
	raw, err := t.inner.Get(ctx, k)
	if err != nil {
		return zero, err
	}
	v, err := t.vc.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("layercache: decode value: %w", err)
	}
	return v, nil
}

func (t *ToBytes[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	k, err := t.key(key)
	if err != nil {
		return err
	}
	raw, err := t.vc.Encode(value)
	if err != nil {
		return &ConfigError{Field: "value", Reason: "cannot encode to bytes", Err: err}
	}
	return t.inner.Set(ctx, k, raw, ttl)
}

func (t *ToBytes[K, V]) Delete(ctx context.Context, key K) error {
	k, err := t.key(key)
	if err != nil {
		return err
	}
	return t.inner.Delete(ctx, k)
}

func (t *ToBytes[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	k, err := t.key(key)
	if err != nil {
		return false, err
	}
	return t.inner.Contains(ctx, k)
}

// Bytes presents a byte-keyed cache over a string-keyed byte store, encoding
// keys with ascii85. Values pass through untouched.
type Bytes struct {
	inner Cache[string, []byte]
}

var _ Cache[[]byte, []byte] = (*Bytes)(nil)

func NewBytes(inner Cache[string, []byte]) *Bytes { return &Bytes{inner: inner} }

func (b *Bytes) key(k []byte) string {
	dst := make([]byte, ascii85.MaxEncodedLen(len(k)))
	return string(dst[:ascii85.Encode(dst, k)])
}

func (b *Bytes) Get(ctx context.Context, key []byte) ([]byte, error) {
	return b.inner.Get(ctx, b.key(key))
}

func (b *Bytes) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	return b.inner.Set(ctx, b.key(key), value, ttl)
}

func (b *Bytes) Delete(ctx context.Context, key []byte) error {
	return b.inner.Delete(ctx, b.key(key))
}

func (b *Bytes) Contains(ctx context.Context, key []byte) (bool, error) {
	return b.inner.Contains(ctx, b.key(key))
}

// Encoded stores typed values in a string-keyed byte store through a Codec.
type Encoded[V any] struct {
	inner Cache[string, []byte]
	codec codec.Codec[V]
}

var _ Cache[string, int] = (*Encoded[int])(nil)

// NewEncoded uses c to (de)serialize values; nil selects codec.JSON[V].
func NewEncoded[V any](inner Cache[string, []byte], c codec.Codec[V]) *Encoded[V] {
	if c == nil {
		c = codec.JSON[V]{}
	}
	return &Encoded[V]{inner: inner, codec: c}
}

func (e *Encoded[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	raw, err := e.inner.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	v, err := e.codec.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("layercache: decode value: %w", err)
	}
	return v, nil
}

func (e *Encoded[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := e.codec.Encode(value)
	if err != nil {
		return &ConfigError{Field: "value", Reason: "cannot encode to bytes", Err: err}
	}
	return e.inner.Set(ctx, key, raw, ttl)
}

func (e *Encoded[V]) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

func (e *Encoded[V]) Contains(ctx context.Context, key string) (bool, error) {
	return e.inner.Contains(ctx, key)
}
