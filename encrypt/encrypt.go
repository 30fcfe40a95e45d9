// Package encrypt stores values encrypted under a hashed key.
//
// For each key, derived = SHA3-512(key || secret). The inner store only ever
// sees derived[:DigestSize] as key and a wire envelope as value, so neither
// keys nor values can be recovered from the store without the secret. Values
// are encrypted with material taken from derived; reading a value back
// requires the clear-text key.
package encrypt

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"

	"github.com/unkn0wn-root/layercache"
	"github.com/unkn0wn-root/layercache/internal/wire"
)

const (
	MinSecretSize     = 16
	MinDigestSize     = 1
	MaxDigestSize     = 24
	DefaultDigestSize = 16

	tagSize = 16
	macInfo = "layercache mac"
)

type Options struct {
	// Secret must be at least MinSecretSize bytes.
	Secret []byte
	// DigestSize is the stored key length; 0 => DefaultDigestSize.
	// Collision probability per pair is 2^-(8*DigestSize).
	DigestSize int
	// Cipher defaults to Salsa20.
	Cipher Cipher
	// Integrity appends a MAC to values written with a non-authenticated
	// cipher. Authenticated ciphers always verify.
	Integrity bool

	Logger layercache.Logger // nil => NopLogger
	Hooks  layercache.Hooks  // nil => NopHooks
	Rand   io.Reader         // nil => crypto/rand.Reader
}

type Encrypted struct {
	inner      layercache.Cache[[]byte, []byte]
	secret     []byte
	digestSize int
	cipher     valueCipher
	integrity  bool
	log        layercache.Logger
	hooks      layercache.Hooks
	rand       io.Reader
}

var _ layercache.Cache[[]byte, []byte] = (*Encrypted)(nil)

func New(inner layercache.Cache[[]byte, []byte], opts Options) (*Encrypted, error) {
	if len(opts.Secret) < MinSecretSize {
		return nil, &layercache.ConfigError{Field: "secret", Reason: "must be at least 16 bytes"}
	}
	size := opts.DigestSize
	if size == 0 {
		size = DefaultDigestSize
	}
	if size < MinDigestSize || size > MaxDigestSize {
		return nil, &layercache.ConfigError{Field: "digest_size", Reason: "must be within 1..24"}
	}
	name := opts.Cipher
	if name == "" {
		name = Salsa20
	}
	vc, ok := lookupCipher(name)
	if !ok {
		return nil, &layercache.ConfigError{Field: "cipher", Reason: "unknown cipher " + string(name)}
	}
	e := &Encrypted{
		inner:      inner,
		secret:     append([]byte(nil), opts.Secret...),
		digestSize: size,
		cipher:     vc,
		integrity:  opts.Integrity,
		log:        opts.Logger,
		hooks:      opts.Hooks,
		rand:       opts.Rand,
	}
	if e.log == nil {
		e.log = layercache.NopLogger{}
	}
	if e.hooks == nil {
		e.hooks = layercache.NopHooks{}
	}
	if e.rand == nil {
		e.rand = rand.Reader
	}
	return e, nil
}

func (e *Encrypted) derive(key []byte) *[64]byte {
	h := sha3.New512()
	h.Write(key)
	h.Write(e.secret)
	var d [64]byte
	h.Sum(d[:0])
	return &d
}

// Digest returns the key under which key's value is stored in the inner cache.
func (e *Encrypted) Digest(key []byte) []byte {
	d := e.derive(key)
	return append([]byte(nil), d[:e.digestSize]...)
}

func macKey(derived *[64]byte) []byte {
	k := make([]byte, 32)
	// HKDF-Expand over a uniformly random PRK; 32 bytes cannot exhaust it
	_, _ = io.ReadFull(hkdf.Expand(sha3.New256, derived[:], []byte(macInfo)), k)
	return k
}

func tag(derived *[64]byte, id byte, nonce, ct []byte) []byte {
	m := hmac.New(sha3.New256, macKey(derived))
	m.Write([]byte{id})
	m.Write(nonce)
	m.Write(ct)
	return m.Sum(nil)[:tagSize]
}

func (e *Encrypted) fail(reason string, digest []byte) error {
	e.hooks.IntegrityFailure(reason)
	e.log.Warn("encrypted value rejected", layercache.Fields{
		"reason": reason,
		"digest": hex.EncodeToString(digest),
		"cipher": e.cipher.id(),
	})
	return &layercache.IntegrityError{Reason: reason}
}

func (e *Encrypted) Get(ctx context.Context, key []byte) ([]byte, error) {
	derived := e.derive(key)
	digest := derived[:e.digestSize]

	raw, err := e.inner.Get(ctx, digest)
	if err != nil {
		return nil, err
	}
	env, err := wire.Decode(raw)
	if err != nil || env.Cipher != e.cipher.id() {
		return nil, e.fail("malformed", digest)
	}

	hasTag := env.Flags&wire.FlagIntegrity != 0
	if e.integrity && !e.cipher.authenticated() && !hasTag {
		return nil, e.fail("malformed", digest)
	}
	if hasTag && !hmac.Equal(env.Tag, tag(derived, env.Cipher, env.Nonce, env.Ciphertext)) {
		return nil, e.fail("tag_mismatch", digest)
	}

	pt, err := e.cipher.open(derived, digest, env.Nonce, env.Ciphertext)
	if err != nil {
		reason := "decrypt"
		if e.cipher.authenticated() {
			reason = "tag_mismatch"
		}
		return nil, e.fail(reason, digest)
	}
	return pt, nil
}

func (e *Encrypted) Set(ctx context.Context, key []byte, value []byte, ttl time.Duration) error {
	derived := e.derive(key)
	digest := derived[:e.digestSize]

	nonce, ct, err := e.cipher.seal(derived, digest, value, e.rand)
	if err != nil {
		return fmt.Errorf("encrypt: seal: %w", err)
	}
	env := wire.Envelope{Cipher: e.cipher.id(), Nonce: nonce, Ciphertext: ct}
	if e.integrity && !e.cipher.authenticated() {
		env.Flags |= wire.FlagIntegrity
		env.Tag = tag(derived, env.Cipher, nonce, ct)
	}
	return e.inner.Set(ctx, append([]byte(nil), digest...), wire.Encode(env), ttl)
}

func (e *Encrypted) Delete(ctx context.Context, key []byte) error {
	return e.inner.Delete(ctx, e.Digest(key))
}

func (e *Encrypted) Contains(ctx context.Context, key []byte) (bool, error) {
	return e.inner.Contains(ctx, e.Digest(key))
}
