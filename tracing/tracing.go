// Package tracing wraps a cache so that every operation runs in an
// OpenTelemetry span.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/layercache"
)

const instrumentation = "github.com/unkn0wn-root/layercache/tracing"

// Options configure New. The zero value traces through the global provider.
type Options struct {
	Tracer trace.Tracer // nil => otel.Tracer(instrumentation)
	Name   string       // cache.name attribute

	// RecordKeys adds the key as cache.key. Off by default since keys can
	// carry user data.
	RecordKeys bool
}

// Traced starts a span named "layercache.<op>" around each call. A miss is
// recorded as cache.hit=false, not as a span error.
type Traced[K, V any] struct {
	inner  layercache.Cache[K, V]
	tracer trace.Tracer
	name   string
	keys   bool
}

var _ layercache.Cache[string, int] = (*Traced[string, int])(nil)

func New[K, V any](inner layercache.Cache[K, V], opts Options) *Traced[K, V] {
	tr := opts.Tracer
	if tr == nil {
		tr = otel.Tracer(instrumentation)
	}
	return &Traced[K, V]{inner: inner, tracer: tr, name: opts.Name, keys: opts.RecordKeys}
}

func (t *Traced[K, V]) start(ctx context.Context, op string, key K) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.name", t.name),
		attribute.String("cache.op", op),
	}
	if t.keys {
		attrs = append(attrs, attribute.String("cache.key", fmt.Sprint(key)))
	}
	return t.tracer.Start(ctx, "layercache."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil && !layercache.IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Traced[K, V]) Get(ctx context.Context, key K) (V, error) {
	ctx, span := t.start(ctx, "get", key)
	v, err := t.inner.Get(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", err == nil))
	finish(span, err)
	return v, err
}

func (t *Traced[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	ctx, span := t.start(ctx, "set", key)
	if ttl > 0 {
		span.SetAttributes(attribute.Int64("cache.ttl_ms", ttl.Milliseconds()))
	}
	err := t.inner.Set(ctx, key, value, ttl)
	finish(span, err)
	return err
}

func (t *Traced[K, V]) Delete(ctx context.Context, key K) error {
	ctx, span := t.start(ctx, "delete", key)
	err := t.inner.Delete(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", err == nil))
	finish(span, err)
	return err
}

func (t *Traced[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	ctx, span := t.start(ctx, "contains", key)
	ok, err := t.inner.Contains(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", ok))
	finish(span, err)
	return ok, err
}
