package memcached

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/layercache"
)

type fakeClient struct {
	items map[string]*memcache.Item
	err   error
}

func newFake() *fakeClient { return &fakeClient{items: map[string]*memcache.Item{}} }

func (f *fakeClient) Get(key string) (*memcache.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	it, ok := f.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return it, nil
}

func (f *fakeClient) Set(it *memcache.Item) error {
	if f.err != nil {
		return f.err
	}
	f.items[it.Key] = it
	return nil
}

func (f *fakeClient) Delete(key string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.items[key]; !ok {
		return memcache.ErrCacheMiss
	}
	delete(f.items, key)
	return nil
}

func newTest(t *testing.T, cfg Config) (*Memcached, *fakeClient) {
	t.Helper()
	f := newFake()
	cfg.Client = f
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, f
}

func TestRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	m, _ := newTest(t, Config{})

	if _, err := m.Get(ctx, "a"); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := m.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "a")
	if err != nil || string(got) != "1" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if ok, _ := m.Contains(ctx, "a"); !ok {
		t.Fatalf("Contains = false")
	}
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, "a"); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("second Delete: want ErrNotFound, got %v", err)
	}
}

func TestEncodeKey(t *testing.T) {
	m, _ := newTest(t, Config{})

	plain, err := m.EncodeKey("user:42")
	if err != nil || plain != "user:42" {
		t.Fatalf("plain key = %q, %v", plain, err)
	}

	seen := map[string]string{}
	for _, k := range []string{"has space", "~tilde", "\x00\x01", "", strings.Repeat("k", 200)} {
		enc, err := m.EncodeKey(k)
		if err != nil {
			t.Fatalf("EncodeKey(%q): %v", k, err)
		}
		if !legal(enc) || len(enc) > MaxKeyLength {
			t.Fatalf("EncodeKey(%q) = %q: not a legal memcached key", k, enc)
		}
		if prev, dup := seen[enc]; dup {
			t.Fatalf("collision between %q and %q", prev, k)
		}
		seen[enc] = k
	}

	// an escaped key never collides with a literal key that looks escaped
	a, _ := m.EncodeKey("~x")
	b, _ := m.EncodeKey(a)
	if a == b {
		t.Fatalf("escape marker is not injective: %q", a)
	}
}

func TestLongKeys(t *testing.T) {
	ctx := context.Background()
	m, f := newTest(t, Config{})

	k := strings.Repeat("x", 251)
	if err := m.Set(ctx, k, []byte("v"), 0); err != nil {
		t.Fatalf("Set long key: %v", err)
	}
	if len(f.items) != 1 {
		t.Fatalf("want 1 stored item, got %d", len(f.items))
	}
	for stored := range f.items {
		if len(stored) > MaxKeyLength {
			t.Fatalf("stored key too long: %d", len(stored))
		}
	}

	huge := strings.Repeat("x", 400)
	err := m.Set(ctx, huge, []byte("v"), 0)
	if !errors.Is(err, layercache.ErrKeyTooLong) || !layercache.IsBackendError(err) {
		t.Fatalf("want BackendError wrapping ErrKeyTooLong, got %v", err)
	}
}

func TestValueTooLarge(t *testing.T) {
	m, _ := newTest(t, Config{MaxValueSize: 4})
	err := m.Set(context.Background(), "k", []byte("12345"), 0)
	if !errors.Is(err, layercache.ErrValueTooLarge) {
		t.Fatalf("want ErrValueTooLarge, got %v", err)
	}
}

func TestExpiration(t *testing.T) {
	ctx := context.Background()
	m, f := newTest(t, Config{DefaultTTL: 90 * time.Second})
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "a", []byte("1"), 0)
	_ = m.Set(ctx, "b", []byte("1"), 1500*time.Millisecond)
	_ = m.Set(ctx, "c", []byte("1"), 31*24*time.Hour)

	if got := f.items["a"].Expiration; got != 90 {
		t.Fatalf("default ttl: want 90, got %d", got)
	}
	if got := f.items["b"].Expiration; got != 2 {
		t.Fatalf("rounded ttl: want 2, got %d", got)
	}
	want := int32(now.Add(31 * 24 * time.Hour).Unix())
	if got := f.items["c"].Expiration; got != want {
		t.Fatalf("long ttl: want timestamp %d, got %d", want, got)
	}
}

func TestPrefixAndBackendErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := New(Config{Client: newFake(), Prefix: "bad prefix"}); err == nil {
		t.Fatalf("want ConfigError for prefix with space")
	}
	if _, err := New(Config{}); err == nil {
		t.Fatalf("want ConfigError for nil client")
	}

	m, f := newTest(t, Config{Prefix: "app:"})
	_ = m.Set(ctx, "k", []byte("v"), 0)
	if _, ok := f.items["app:k"]; !ok {
		t.Fatalf("prefix not applied: %v", f.items)
	}

	f.err = errors.New("connection refused")
	_, err := m.Get(ctx, "k")
	var be *layercache.BackendError
	if !errors.As(err, &be) || be.Backend != "memcached" || be.Op != "get" {
		t.Fatalf("want memcached BackendError, got %v", err)
	}
	if _, err := m.Contains(ctx, "k"); !layercache.IsBackendError(err) {
		t.Fatalf("Contains should surface backend error, got %v", err)
	}
}
