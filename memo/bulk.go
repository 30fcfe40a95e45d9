package memo

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/layercache"
)

// Namespacer gives each memoized member its own view of the shared cache.
type Namespacer[V any] func(inner layercache.Cache[string, V], prefix string) layercache.Cache[string, V]

// Prefixed is the default Namespacer.
func Prefixed[V any](inner layercache.Cache[string, V], prefix string) layercache.Cache[string, V] {
	return layercache.NewPrefixed(inner, prefix)
}

// WithNamespacer overrides Prefixed for CacheFunctions (Namespacer[R]) and
// CacheMethods (Namespacer[[]byte]).
func WithNamespacer[V any](ns Namespacer[V]) Option {
	return func(o *options) { o.namespacer = ns }
}

func namespacerFor[V any](o options) (Namespacer[V], error) {
	if o.namespacer == nil {
		return Prefixed[V], nil
	}
	ns, ok := o.namespacer.(Namespacer[V])
	if !ok {
		var zero V
		return nil, &layercache.ConfigError{
			Field:  "namespacer",
			Reason: fmt.Sprintf("%T does not produce caches of %T", o.namespacer, zero),
		}
	}
	return ns, nil
}

// CacheFunctions memoizes funcs[name] under ns(cache, prefix) for every
// name -> prefix entry in prefixes.
func CacheFunctions[A, R any](
	cache layercache.Cache[string, R],
	funcs map[string]func(context.Context, A) (R, error),
	prefixes map[string]string,
	opts ...Option,
) (map[string]*Func[A, R], error) {
	ns, err := namespacerFor[R](buildOptions(opts))
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Func[A, R], len(prefixes))
	for name, prefix := range prefixes {
		fn, ok := funcs[name]
		if !ok || fn == nil {
			return nil, &layercache.ConfigError{Field: name, Reason: "function not found"}
		}
		out[name] = Cached(ns(cache, prefix), fn, opts...)
	}
	return out, nil
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Method is a memoized func-typed struct field installed by CacheMethods.
type Method struct {
	name  string
	cache layercache.Cache[string, []byte]
	orig  reflect.Value
	out   reflect.Type
	key   KeyFunc
	ttl   time.Duration
	group *singleflight.Group
}

// CacheMethods replaces the named func fields of the struct obj points to
// with memoized versions. Each field must have the shape
// func(context.Context, ...) (R, error); results are stored as JSON under
// ns(cache, prefixes[name]). The returned Methods expose In and Del.
func CacheMethods(
	cache layercache.Cache[string, []byte],
	obj any,
	prefixes map[string]string,
	opts ...Option,
) (map[string]*Method, error) {
	o := buildOptions(opts)
	ns, err := namespacerFor[[]byte](o)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, &layercache.ConfigError{Field: "obj", Reason: fmt.Sprintf("want non-nil pointer to struct, got %T", obj)}
	}
	sv := rv.Elem()

	out := make(map[string]*Method, len(prefixes))
	for name, prefix := range prefixes {
		fv := sv.FieldByName(name)
		if !fv.IsValid() {
			return nil, &layercache.ConfigError{Field: name, Reason: "no such member on " + sv.Type().String()}
		}
		if err := checkMethod(fv); err != nil {
			return nil, &layercache.ConfigError{Field: name, Reason: err.Error()}
		}
		m := &Method{
			name:  sv.Type().Name() + "." + name,
			cache: ns(cache, prefix),
			orig:  reflect.ValueOf(fv.Interface()),
			out:   fv.Type().Out(0),
			key:   o.key,
			ttl:   o.ttl,
		}
		if o.identity {
			m.key = FuncKey(m.name, m.key)
		}
		if o.flight {
			m.group = &singleflight.Group{}
		}
		out[name] = m
	}
	// install only once every member checked out
	for name, m := range out {
		fv := sv.FieldByName(name)
		fv.Set(reflect.MakeFunc(fv.Type(), m.call))
	}
	return out, nil
}

func checkMethod(fv reflect.Value) error {
	t := fv.Type()
	switch {
	case t.Kind() != reflect.Func:
		return fmt.Errorf("not a func field (%s)", t)
	case !fv.CanSet():
		return fmt.Errorf("unexported field")
	case fv.IsNil():
		return fmt.Errorf("nil func")
	case t.IsVariadic():
		return fmt.Errorf("variadic funcs are not supported")
	case t.NumIn() < 1 || t.In(0) != ctxType:
		return fmt.Errorf("first parameter must be context.Context")
	case t.NumOut() != 2 || t.Out(1) != errType:
		return fmt.Errorf("want results (R, error)")
	}
	return nil
}

func (m *Method) args(in []reflect.Value) Args {
	pos := make([]any, len(in))
	for i, v := range in {
		pos[i] = v.Interface()
	}
	return Args{Pos: pos}
}

// Key returns the cache key for a call with args (context excluded).
func (m *Method) Key(args ...any) (string, error) {
	k, err := m.key(Args{Pos: args})
	if err != nil {
		return "", &layercache.ConfigError{Field: "key", Reason: "cannot derive cache key", Err: err}
	}
	return k, nil
}

func (m *Method) result(v reflect.Value, err error) []reflect.Value {
	if err == nil {
		return []reflect.Value{v, reflect.Zero(errType)}
	}
	return []reflect.Value{reflect.Zero(m.out), reflect.ValueOf(&err).Elem()}
}

func (m *Method) call(in []reflect.Value) []reflect.Value {
	ctx, _ := in[0].Interface().(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	k, err := m.key(m.args(in[1:]))
	if err != nil {
		return m.result(reflect.Value{}, &layercache.ConfigError{Field: "key", Reason: "cannot derive cache key", Err: err})
	}

	raw, err := m.cache.Get(ctx, k)
	switch {
	case err == nil:
		ptr := reflect.New(m.out)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return m.result(reflect.Value{}, fmt.Errorf("memo: decode %s result: %w", m.name, err))
		}
		return m.result(ptr.Elem(), nil)
	case !layercache.IsNotFound(err):
		return m.result(reflect.Value{}, err)
	}

	if m.group == nil {
		v, err := m.compute(ctx, k, in)
		return m.result(v, err)
	}
	res, err, _ := m.group.Do(k, func() (any, error) {
		return m.compute(ctx, k, in)
	})
	if err != nil {
		return m.result(reflect.Value{}, err)
	}
	return m.result(res.(reflect.Value), nil)
}

func (m *Method) compute(ctx context.Context, k string, in []reflect.Value) (reflect.Value, error) {
	outs := m.orig.Call(in)
	if err, _ := outs[1].Interface().(error); err != nil {
		return reflect.Value{}, err
	}
	raw, err := json.Marshal(outs[0].Interface())
	if err != nil {
		return reflect.Value{}, &layercache.ConfigError{Field: "value", Reason: "cannot encode " + m.name + " result", Err: err}
	}
	if err := m.cache.Set(ctx, k, raw, m.ttl); err != nil {
		return reflect.Value{}, err
	}
	return outs[0], nil
}

// In reports whether the result for args is cached.
func (m *Method) In(ctx context.Context, args ...any) (bool, error) {
	k, err := m.Key(args...)
	if err != nil {
		return false, err
	}
	return m.cache.Contains(ctx, k)
}

// Del invalidates the result for args and reports whether it was present.
func (m *Method) Del(ctx context.Context, args ...any) (bool, error) {
	k, err := m.Key(args...)
	if err != nil {
		return false, err
	}
	return deleted(m.cache.Delete(ctx, k))
}
