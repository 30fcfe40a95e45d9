package layercache

import (
	"context"
	"fmt"
	"time"
)

// Debug logs every operation before and after delegating. It never alters
// return values or errors.
type Debug[K, V any] struct {
	inner Cache[K, V]
	log   Logger
	name  string
}

var _ Cache[string, int] = (*Debug[string, int])(nil)

// NewDebug logs through l at debug level; name labels the lines ("cache" if empty).
func NewDebug[K, V any](inner Cache[K, V], l Logger, name string) *Debug[K, V] {
	d := &Debug[K, V]{
		inner: inner,
		log:   coalesce[Logger](l, NopLogger{}),
		name:  coalesce(name, defaultDebugName),
	}
	d.log.Info("debug cache init", Fields{"cache": d.name})
	return d
}

func (d *Debug[K, V]) Get(ctx context.Context, key K) (V, error) {
	v, err := d.inner.Get(ctx, key)
	f := d.fields("get", key, err)
	if err == nil {
		f["value"] = shape(v)
	}
	d.log.Debug("cache get", f)
	return v, err
}

func (d *Debug[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	err := d.inner.Set(ctx, key, value, ttl)
	f := d.fields("set", key, err)
	f["value"] = shape(value)
	f["ttl"] = ttl
	d.log.Debug("cache set", f)
	return err
}

func (d *Debug[K, V]) Delete(ctx context.Context, key K) error {
	err := d.inner.Delete(ctx, key)
	d.log.Debug("cache delete", d.fields("delete", key, err))
	return err
}

func (d *Debug[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	ok, err := d.inner.Contains(ctx, key)
	f := d.fields("contains", key, err)
	f["found"] = ok
	d.log.Debug("cache contains", f)
	return ok, err
}

func (d *Debug[K, V]) fields(op string, key K, err error) Fields {
	f := Fields{"cache": d.name, "op": op, "key": fmt.Sprint(key)}
	switch {
	case err == nil:
		f["outcome"] = "ok"
	case IsNotFound(err):
		f["outcome"] = "miss"
	default:
		f["outcome"] = "error"
		f["err"] = err
	}
	return f
}

// shape describes a value without dumping it: type plus length when it has one.
func shape(v any) string {
	switch x := v.(type) {
	case []byte:
		return fmt.Sprintf("[]byte(len=%d)", len(x))
	case string:
		return fmt.Sprintf("string(len=%d)", len(x))
	default:
		return fmt.Sprintf("%T", v)
	}
}
