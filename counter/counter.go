// Package counter provides the monotonic counters behind automatic namespacing.
//
// Default is the process-wide counter used by layercache.NewAutoPrefixed. It
// starts at 0 on first use, is incremented atomically per auto-prefixed cache,
// and is never reset implicitly. Tests that need isolation construct their own
// counter with NewLocal and inject it instead of touching Default.
package counter

import (
	"context"
	"sync/atomic"
)

// Counter hands out distinct, increasing values.
type Counter interface {
	// Next returns the current value and advances the counter.
	Next(ctx context.Context) (uint64, error)
}

// Default is the process-scoped counter.
var Default Counter = NewLocal()

// Local keeps the counter in-process.
type Local struct {
	n atomic.Uint64
}

var _ Counter = (*Local)(nil)

func NewLocal() *Local { return &Local{} }

func (l *Local) Next(context.Context) (uint64, error) {
	return l.n.Add(1) - 1, nil
}

// Peek returns the value the next call to Next will hand out.
func (l *Local) Peek() uint64 { return l.n.Load() }
