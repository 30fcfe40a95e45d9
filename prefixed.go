package layercache

import (
	"context"
	"encoding/ascii85"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/unkn0wn-root/layercache/counter"
)

// Prefixed multiplexes one physical store among logical caches by prepending a
// fixed prefix to every key. Distinct instances are isolated as long as no
// prefix is itself a prefix of another. NewAutoPrefixed guarantees that by
// keeping the separator out of the encoding's alphabet.
type Prefixed[V any] struct {
	inner  Cache[string, V]
	prefix string
}

var _ Cache[string, int] = (*Prefixed[int])(nil)

func NewPrefixed[V any](inner Cache[string, V], prefix string) *Prefixed[V] {
	return &Prefixed[V]{inner: inner, prefix: prefix}
}

// Prefix returns the prefix prepended to keys.
func (p *Prefixed[V]) Prefix() string { return p.prefix }

func (p *Prefixed[V]) key(k string) string { return p.prefix + k }

func (p *Prefixed[V]) Get(ctx context.Context, key string) (V, error) {
	return p.inner.Get(ctx, p.key(key))
}

func (p *Prefixed[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	return p.inner.Set(ctx, p.key(key), value, ttl)
}

func (p *Prefixed[V]) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.key(key))
}

func (p *Prefixed[V]) Contains(ctx context.Context, key string) (bool, error) {
	return p.inner.Contains(ctx, p.key(key))
}

// AutoPrefixOptions tune NewAutoPrefixed. The zero value is ready to use.
type AutoPrefixOptions struct {
	Sep      string          // "" => "."; must not use the encoding's alphabet
	Encoding string          // "" => "b64"; one of b64, b64u, b32, b32x, b16, a85, b85
	Counter  counter.Counter // nil => counter.Default
}

type prefixEncoding struct {
	encode func([]byte) string
	// alphabet lists every byte encode can emit
	alphabet string
}

const (
	alnum    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b85Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{|}~"
)

var prefixEncodings = map[string]prefixEncoding{
	"b64":  {base64.StdEncoding.EncodeToString, alnum + "+/="},
	"b64u": {base64.URLEncoding.EncodeToString, alnum + "-_="},
	"b32":  {base32.StdEncoding.EncodeToString, "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567="},
	"b32x": {base32.HexEncoding.EncodeToString, "0123456789ABCDEFGHIJKLMNOPQRSTUV="},
	"b16":  {func(b []byte) string { return strings.ToUpper(hex.EncodeToString(b)) }, "0123456789ABCDEF"},
	"a85":  {encodeA85, a85Chars()},
	"b85":  {encodeB85, b85Chars},
}

func encodeA85(b []byte) string {
	dst := make([]byte, ascii85.MaxEncodedLen(len(b)))
	return string(dst[:ascii85.Encode(dst, b)])
}

func a85Chars() string {
	var sb strings.Builder
	for c := byte('!'); c <= 'u'; c++ {
		sb.WriteByte(c)
	}
	sb.WriteByte('z')
	return sb.String()
}

// encodeB85 is base85 with the RFC 1924 alphabet, unpadded: a trailing group
// of n bytes yields n+1 characters.
func encodeB85(b []byte) string {
	out := make([]byte, 0, (len(b)+3)/4*5)
	for len(b) > 0 {
		var chunk [4]byte
		n := copy(chunk[:], b)
		b = b[n:]
		v := uint32(chunk[0])<<24 | uint32(chunk[1])<<16 | uint32(chunk[2])<<8 | uint32(chunk[3])
		var digits [5]byte
		for i := 4; i >= 0; i-- {
			digits[i] = b85Chars[v%85]
			v /= 85
		}
		out = append(out, digits[:n+1]...)
	}
	return string(out)
}

// NewAutoPrefixed returns a Prefixed cache whose prefix is the next counter
// value, encoded with opts.Encoding and followed by opts.Sep. The prefix is
// fixed at construction. A separator sharing a character with the encoding's
// alphabet is rejected: prefixes would stop being prefix-free and distinct
// views could address the same physical key.
func NewAutoPrefixed[V any](ctx context.Context, inner Cache[string, V], opts AutoPrefixOptions) (*Prefixed[V], error) {
	method := coalesce(opts.Encoding, DefaultAutoPrefixEncoding)
	enc, ok := prefixEncodings[method]
	if !ok {
		return nil, &ConfigError{Field: "encoding", Reason: "unknown method " + method}
	}
	sep := coalesce(opts.Sep, DefaultAutoPrefixSep)
	if strings.ContainsAny(sep, enc.alphabet) {
		return nil, &ConfigError{Field: "sep", Reason: fmt.Sprintf("%q overlaps the %s alphabet", sep, method)}
	}
	ctr := coalesce[counter.Counter](opts.Counter, counter.Default)

	n, err := ctr.Next(ctx)
	if err != nil {
		return nil, &ConfigError{Field: "counter", Reason: "next value", Err: err}
	}
	return NewPrefixed(inner, enc.encode(counterBytes(n))+sep), nil
}

// counterBytes is the minimal big-endian form of n, at least one byte long.
func counterBytes(n uint64) []byte {
	var b [8]byte
	i := len(b)
	for {
		i--
		b[i] = byte(n)
		n >>= 8
		if n == 0 {
			break
		}
	}
	return b[i:]
}
