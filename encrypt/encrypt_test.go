package encrypt

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/layercache"
	"github.com/unkn0wn-root/layercache/internal/wire"
	"github.com/unkn0wn-root/layercache/provider/memory"
)

var (
	secret1 = []byte("0123456789abcdef-secret-one")
	secret2 = []byte("0123456789abcdef-secret-two")
)

type integrityHooks struct {
	layercache.NopHooks
	reasons []string
}

func (h *integrityHooks) IntegrityFailure(reason string) { h.reasons = append(h.reasons, reason) }

func newStore() (*layercache.Bytes, *memory.Map[string, []byte]) {
	m := memory.New[string, []byte]()
	return layercache.NewBytes(m), m
}

func mustNew(t *testing.T, inner layercache.Cache[[]byte, []byte], opts Options) *Encrypted {
	t.Helper()
	e, err := New(inner, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestRoundTripEveryCipher(t *testing.T) {
	ctx := context.Background()
	for _, c := range Ciphers() {
		for _, integrity := range []bool{false, true} {
			inner, m := newStore()
			e := mustNew(t, inner, Options{Secret: secret1, Cipher: c, Integrity: integrity})

			for _, v := range [][]byte{[]byte("hello, world"), {}, bytes.Repeat([]byte{0xAB}, 100)} {
				if err := e.Set(ctx, []byte("key"), v, 0); err != nil {
					t.Fatalf("%s: Set: %v", c, err)
				}
				got, err := e.Get(ctx, []byte("key"))
				if err != nil {
					t.Fatalf("%s integrity=%v: Get: %v", c, integrity, err)
				}
				if !bytes.Equal(got, v) {
					t.Fatalf("%s: got %x want %x", c, got, v)
				}
			}
			if m.Len() != 1 {
				t.Fatalf("%s: want a single stored entry, got %d", c, m.Len())
			}
		}
	}
}

func TestStoredBytesHideKeyAndValue(t *testing.T) {
	ctx := context.Background()
	plain := []byte("the plaintext value")
	for _, c := range Ciphers() {
		inner, m := newStore()
		e := mustNew(t, inner, Options{Secret: secret1, Cipher: c})
		_ = e.Set(ctx, []byte("user:42"), plain, 0)

		raw, err := inner.Get(ctx, e.Digest([]byte("user:42")))
		if err != nil {
			t.Fatalf("%s: stored entry not under digest: %v", c, err)
		}
		env, err := wire.Decode(raw)
		if err != nil {
			t.Fatalf("%s: envelope: %v", c, err)
		}
		if bytes.Contains(env.Ciphertext, plain) || bytes.Equal(env.Ciphertext, plain) {
			t.Fatalf("%s: ciphertext leaks plaintext", c)
		}
		for _, k := range m.Keys() {
			if bytes.Contains([]byte(k), []byte("user:42")) {
				t.Fatalf("%s: stored key leaks clear-text key", c)
			}
		}
	}
}

func TestDigestIsDeterministicAndSized(t *testing.T) {
	inner, _ := newStore()
	for _, size := range []int{1, 8, 16, 24} {
		e := mustNew(t, inner, Options{Secret: secret1, DigestSize: size})
		a, b := e.Digest([]byte("k")), e.Digest([]byte("k"))
		if len(a) != size || !bytes.Equal(a, b) {
			t.Fatalf("size %d: digest %x / %x", size, a, b)
		}
	}
	e1 := mustNew(t, inner, Options{Secret: secret1})
	e2 := mustNew(t, inner, Options{Secret: secret2})
	if bytes.Equal(e1.Digest([]byte("k")), e2.Digest([]byte("k"))) {
		t.Fatalf("digest must depend on the secret")
	}
}

func TestWrongSecretFailsClosed(t *testing.T) {
	ctx := context.Background()
	for _, c := range Ciphers() {
		inner, _ := newStore()
		h := &integrityHooks{}
		e1 := mustNew(t, inner, Options{Secret: secret1, Cipher: c, Integrity: true})
		e2 := mustNew(t, inner, Options{Secret: secret2, Cipher: c, Integrity: true, Hooks: h})

		key := []byte("shared-key")
		_ = e1.Set(ctx, key, []byte("secret value"), 0)

		// plant e1's ciphertext where e2 will look for it
		raw, _ := inner.Get(ctx, e1.Digest(key))
		_ = inner.Set(ctx, e2.Digest(key), raw, 0)

		got, err := e2.Get(ctx, key)
		var ie *layercache.IntegrityError
		if !errors.As(err, &ie) {
			t.Fatalf("%s: want IntegrityError, got %v (value %q)", c, err, got)
		}
		if got != nil {
			t.Fatalf("%s: plaintext returned alongside IntegrityError", c)
		}
		if len(h.reasons) != 1 || h.reasons[0] != "tag_mismatch" {
			t.Fatalf("%s: hook reasons = %v", c, h.reasons)
		}
	}
}

func TestTamperedValueFailsClosed(t *testing.T) {
	ctx := context.Background()
	for _, c := range []Cipher{Salsa20, AES256GCM} {
		inner, _ := newStore()
		e := mustNew(t, inner, Options{Secret: secret1, Cipher: c, Integrity: true})
		key := []byte("k")
		_ = e.Set(ctx, key, []byte("payload"), 0)

		raw, _ := inner.Get(ctx, e.Digest(key))
		tampered := append([]byte(nil), raw...)
		tampered[len(tampered)-1] ^= 0x01
		_ = inner.Set(ctx, e.Digest(key), tampered, 0)

		var ie *layercache.IntegrityError
		if _, err := e.Get(ctx, key); !errors.As(err, &ie) {
			t.Fatalf("%s: want IntegrityError on flipped bit, got %v", c, err)
		}

		_ = inner.Set(ctx, e.Digest(key), []byte("garbage"), 0)
		if _, err := e.Get(ctx, key); !errors.As(err, &ie) || ie.Reason != "malformed" {
			t.Fatalf("%s: want malformed IntegrityError, got %v", c, err)
		}
	}
}

func TestIntegrityRequiresTag(t *testing.T) {
	ctx := context.Background()
	inner, _ := newStore()
	loose := mustNew(t, inner, Options{Secret: secret1})
	strict := mustNew(t, inner, Options{Secret: secret1, Integrity: true})

	_ = loose.Set(ctx, []byte("k"), []byte("v"), 0)
	var ie *layercache.IntegrityError
	if _, err := strict.Get(ctx, []byte("k")); !errors.As(err, &ie) {
		t.Fatalf("untagged value must be rejected in integrity mode, got %v", err)
	}
}

func TestMissAndDelete(t *testing.T) {
	ctx := context.Background()
	inner, _ := newStore()
	e := mustNew(t, inner, Options{Secret: secret1, Cipher: ChaCha20})

	if _, err := e.Get(ctx, []byte("absent")); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	_ = e.Set(ctx, []byte("k"), []byte("v"), 0)
	if ok, _ := e.Contains(ctx, []byte("k")); !ok {
		t.Fatalf("Contains = false")
	}
	if err := e.Delete(ctx, []byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.Delete(ctx, []byte("k")); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestConfigErrors(t *testing.T) {
	inner, _ := newStore()
	cases := []struct {
		name  string
		opts  Options
		field string
	}{
		{"short secret", Options{Secret: []byte("short")}, "secret"},
		{"digest too large", Options{Secret: secret1, DigestSize: 25}, "digest_size"},
		{"negative digest", Options{Secret: secret1, DigestSize: -1}, "digest_size"},
		{"unknown cipher", Options{Secret: secret1, Cipher: "ROT13"}, "cipher"},
	}
	for _, tc := range cases {
		_, err := New(inner, tc.opts)
		var ce *layercache.ConfigError
		if !errors.As(err, &ce) || ce.Field != tc.field {
			t.Fatalf("%s: want ConfigError on %s, got %v", tc.name, tc.field, err)
		}
	}
}

func TestPadding(t *testing.T) {
	for n := 0; n <= 33; n++ {
		b := bytes.Repeat([]byte{'x'}, n)
		p := pad(b, 16)
		if len(p)%16 != 0 || len(p) <= n {
			t.Fatalf("pad(%d) produced %d bytes", n, len(p))
		}
		u, err := unpad(p, 16)
		if err != nil || !bytes.Equal(u, b) {
			t.Fatalf("unpad(pad(%d)) = %q, %v", n, u, err)
		}
	}
	if _, err := unpad([]byte{1, 2, 3, 0}, 16); err == nil {
		t.Fatalf("zero pad byte must be rejected")
	}
}
