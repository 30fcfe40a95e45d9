package minio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/unkn0wn-root/layercache"
)

type fakeObject struct {
	data []byte
	meta map[string]string
}

type fakeBucket struct {
	objects map[string]fakeObject
	err     error
}

func newFakeBucket() *fakeBucket { return &fakeBucket{objects: map[string]fakeObject{}} }

func (f *fakeBucket) put(_ context.Context, name string, data []byte, meta map[string]string) error {
	if f.err != nil {
		return f.err
	}
	// S3 hands metadata back canonicalized with the amz prefix
	out := map[string]string{}
	for k, v := range meta {
		out["X-Amz-Meta-"+k] = v
	}
	f.objects[name] = fakeObject{data: append([]byte(nil), data...), meta: out}
	return nil
}

func (f *fakeBucket) get(_ context.Context, name string) ([]byte, map[string]string, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	o, ok := f.objects[name]
	if !ok {
		return nil, nil, layercache.ErrNotFound
	}
	return o.data, o.meta, nil
}

func (f *fakeBucket) stat(_ context.Context, name string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.objects[name]
	if !ok {
		return nil, layercache.ErrNotFound
	}
	return o.meta, nil
}

func (f *fakeBucket) remove(_ context.Context, name string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.objects, name)
	return nil
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBucket()
	s := newStore(fb, "cache/", 0)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := fb.objects["cache/k"]; !ok {
		t.Fatalf("object not stored under prefix: %v", fb.objects)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("second Delete: want ErrNotFound, got %v", err)
	}
}

func TestStoreLazyExpiry(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBucket()
	s := newStore(fb, "", time.Minute)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "k", []byte("v"), 0)
	if ok, _ := s.Contains(ctx, "k"); !ok {
		t.Fatalf("fresh entry should be present")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := s.Contains(ctx, "k"); ok {
		t.Fatalf("expired entry reported present")
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("want ErrNotFound after expiry, got %v", err)
	}
	if len(fb.objects) != 0 {
		t.Fatalf("expired object should be removed on read")
	}
}

func TestObjectName(t *testing.T) {
	s := newStore(newFakeBucket(), "", 0)

	if n, _ := s.objectName("a/b"); n != "a/b" {
		t.Fatalf("plain key rewritten: %q", n)
	}
	a, _ := s.objectName("~x")
	b, _ := s.objectName(string([]byte{0xff, 0xfe}))
	c, _ := s.objectName(a)
	if !strings.HasPrefix(a, "~") || !strings.HasPrefix(b, "~") || a == c {
		t.Fatalf("escaping broken: %q %q %q", a, b, c)
	}
	if _, err := s.objectName(strings.Repeat("x", MaxKeyLength+1)); !errors.Is(err, layercache.ErrKeyTooLong) {
		t.Fatalf("want ErrKeyTooLong, got %v", err)
	}
}

func TestStoreBackendError(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBucket()
	s := newStore(fb, "", 0)
	fb.err = errors.New("dial tcp: refused")

	var be *layercache.BackendError
	if _, err := s.Get(ctx, "k"); !errors.As(err, &be) || be.Backend != "minio" {
		t.Fatalf("want minio BackendError, got %v", err)
	}
	if err := s.Set(ctx, "k", nil, 0); !layercache.IsBackendError(err) {
		t.Fatalf("want BackendError from Set, got %v", err)
	}
}

func TestTranslateAndConfig(t *testing.T) {
	if err := translate(minio.ErrorResponse{Code: "NoSuchKey"}); !errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("NoSuchKey should map to ErrNotFound, got %v", err)
	}
	if err := translate(minio.ErrorResponse{Code: "AccessDenied"}); errors.Is(err, layercache.ErrNotFound) {
		t.Fatalf("AccessDenied must not map to ErrNotFound")
	}

	var ce *layercache.ConfigError
	if _, err := New(Config{}); !errors.As(err, &ce) {
		t.Fatalf("missing bucket: want ConfigError, got %v", err)
	}
	if _, err := New(Config{Bucket: "b"}); !errors.As(err, &ce) {
		t.Fatalf("missing endpoint: want ConfigError, got %v", err)
	}
	s, err := New(Config{Bucket: "b", Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	if err != nil || s == nil {
		t.Fatalf("New: %v", err)
	}
}
