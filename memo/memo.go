// Package memo memoizes functions through a layercache.Cache.
//
// A memoized function is a bundle: Call computes or fetches, In reports
// whether a result is cached, Del invalidates it. All three derive the key
// with the same KeyFunc. Concurrent misses on one key each invoke the
// function unless WithSingleflight is set.
package memo

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/layercache"
)

type options struct {
	key        KeyFunc
	identity   bool
	ttl        time.Duration
	flight     bool
	namespacer any
}

type Option func(*options)

// WithKey selects the key function; default JSONKey.
func WithKey(k KeyFunc) Option { return func(o *options) { o.key = k } }

// WithIdentity folds the function's name into every key.
func WithIdentity() Option { return func(o *options) { o.identity = true } }

// WithTTL is passed to Set for every stored result.
func WithTTL(d time.Duration) Option { return func(o *options) { o.ttl = d } }

// WithSingleflight collapses concurrent misses on the same key into one call.
func WithSingleflight() Option { return func(o *options) { o.flight = true } }

func buildOptions(opts []Option) options {
	o := options{key: JSONKey}
	for _, opt := range opts {
		opt(&o)
	}
	if o.key == nil {
		o.key = JSONKey
	}
	return o
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return ""
}

// Func is a memoized func(ctx, A) (R, error).
type Func[A, R any] struct {
	cache layercache.Cache[string, R]
	fn    func(context.Context, A) (R, error)
	key   KeyFunc
	ttl   time.Duration
	group *singleflight.Group
}

// Cached memoizes fn in cache. An argument of type Args is keyed as is; any
// other argument is keyed as the single positional value.
func Cached[A, R any](cache layercache.Cache[string, R], fn func(context.Context, A) (R, error), opts ...Option) *Func[A, R] {
	o := buildOptions(opts)
	f := &Func[A, R]{cache: cache, fn: fn, key: o.key, ttl: o.ttl}
	if o.identity {
		f.key = FuncKey(funcName(fn), f.key)
	}
	if o.flight {
		f.group = &singleflight.Group{}
	}
	return f
}

// Cache returns the cache results are stored in.
func (f *Func[A, R]) Cache() layercache.Cache[string, R] { return f.cache }

// Key returns the cache key for a.
func (f *Func[A, R]) Key(a A) (string, error) {
	args, ok := any(a).(Args)
	if !ok {
		args = Args{Pos: []any{a}}
	}
	k, err := f.key(args)
	if err != nil {
		return "", &layercache.ConfigError{Field: "key", Reason: "cannot derive cache key", Err: err}
	}
	return k, nil
}

// Call returns the cached result for a, computing and storing it on a miss.
// Errors from the function are returned and not cached; cache errors other
// than a miss are returned as is.
func (f *Func[A, R]) Call(ctx context.Context, a A) (R, error) {
	var zero R
	k, err := f.Key(a)
	if err != nil {
		return zero, err
	}
	v, err := f.cache.Get(ctx, k)
	if err == nil {
		return v, nil
	}
	if !layercache.IsNotFound(err) {
		return zero, err
	}
	if f.group == nil {
		return f.compute(ctx, k, a)
	}
	res, err, _ := f.group.Do(k, func() (any, error) {
		return f.compute(ctx, k, a)
	})
	if err != nil {
		return zero, err
	}
	// res is a nil interface when R is an interface type and fn returned nil
	r, _ := res.(R)
	return r, nil
}

func (f *Func[A, R]) compute(ctx context.Context, k string, a A) (R, error) {
	var zero R
	v, err := f.fn(ctx, a)
	if err != nil {
		return zero, err
	}
	if err := f.cache.Set(ctx, k, v, f.ttl); err != nil {
		return zero, err
	}
	return v, nil
}

// In reports whether a result for a is cached, without calling the function.
func (f *Func[A, R]) In(ctx context.Context, a A) (bool, error) {
	k, err := f.Key(a)
	if err != nil {
		return false, err
	}
	return f.cache.Contains(ctx, k)
}

// Del invalidates the cached result for a and reports whether it was present.
func (f *Func[A, R]) Del(ctx context.Context, a A) (bool, error) {
	k, err := f.Key(a)
	if err != nil {
		return false, err
	}
	return deleted(f.cache.Delete(ctx, k))
}

func deleted(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case layercache.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Func2 is a memoized two-argument function, keyed as Of(a1, a2).
type Func2[A1, A2, R any] struct {
	*Func[Args, R]
}

func Cached2[A1, A2, R any](cache layercache.Cache[string, R], fn func(context.Context, A1, A2) (R, error), opts ...Option) *Func2[A1, A2, R] {
	o := buildOptions(opts)
	if o.identity {
		// name the user's function, not the adapter closure below
		opts = append(opts[:len(opts):len(opts)], WithKey(FuncKey(funcName(fn), o.key)), withoutIdentity())
	}
	inner := Cached(cache, func(ctx context.Context, a Args) (R, error) {
		return fn(ctx, a.Pos[0].(A1), a.Pos[1].(A2))
	}, opts...)
	return &Func2[A1, A2, R]{Func: inner}
}

func withoutIdentity() Option { return func(o *options) { o.identity = false } }

func (f *Func2[A1, A2, R]) Call(ctx context.Context, a1 A1, a2 A2) (R, error) {
	return f.Func.Call(ctx, Of(a1, a2))
}

func (f *Func2[A1, A2, R]) In(ctx context.Context, a1 A1, a2 A2) (bool, error) {
	return f.Func.In(ctx, Of(a1, a2))
}

func (f *Func2[A1, A2, R]) Del(ctx context.Context, a1 A1, a2 A2) (bool, error) {
	return f.Func.Del(ctx, Of(a1, a2))
}
