package layercache

import (
	"context"
	"time"
)

// TwoLevelOptions configure NewTwoLevel.
type TwoLevelOptions struct {
	// Resilient absorbs *BackendError from the secondary: it is logged and
	// treated as a miss (get/contains) or a no-op (set/delete) for that call
	// only. Nothing is remembered; the next call tries the secondary again.
	Resilient bool

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// TwoLevel composes a fast primary with a larger secondary. Reads populate the
// primary from the secondary; writes and deletes go to both.
//
// Configure the secondary's expiration to be at least as long as the
// primary's, otherwise a key can outlive its secondary copy and the tiers
// drift apart.
type TwoLevel[K, V any] struct {
	primary   Cache[K, V]
	secondary Cache[K, V]
	resilient bool
	log       Logger
	hooks     Hooks
}

var _ Cache[string, int] = (*TwoLevel[string, int])(nil)

func NewTwoLevel[K, V any](primary, secondary Cache[K, V], opts TwoLevelOptions) *TwoLevel[K, V] {
	return &TwoLevel[K, V]{
		primary:   primary,
		secondary: secondary,
		resilient: opts.Resilient,
		log:       coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:     coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
}

func (t *TwoLevel[K, V]) Get(ctx context.Context, key K) (V, error) {
	v, err := t.primary.Get(ctx, key)
	if err == nil || !IsNotFound(err) {
		return v, err
	}

	v2, err2 := t.secondary.Get(ctx, key)
	if err2 != nil {
		if IsNotFound(err2) || t.absorb("get", err2) {
			// report the primary's miss
			return v, err
		}
		return v2, err2
	}
	// write-through population of the primary
	if err := t.primary.Set(ctx, key, v2, 0); err != nil {
		return v2, err
	}
	return v2, nil
}

func (t *TwoLevel[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	if err := t.secondary.Set(ctx, key, value, ttl); err != nil && !t.absorb("set", err) {
		return err
	}
	return t.primary.Set(ctx, key, value, ttl)
}

// Delete removes key from both tiers; ErrNotFound only when neither had it.
// When an absorbed secondary failure leaves its state unknown, the primary's
// answer decides.
func (t *TwoLevel[K, V]) Delete(ctx context.Context, key K) error {
	inSecondary := true
	if err := t.secondary.Delete(ctx, key); err != nil {
		switch {
		case IsNotFound(err):
			inSecondary = false
		case t.absorb("delete", err):
			inSecondary = false
		default:
			return err
		}
	}
	err := t.primary.Delete(ctx, key)
	if IsNotFound(err) && inSecondary {
		return nil
	}
	return err
}

func (t *TwoLevel[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	ok, err := t.primary.Contains(ctx, key)
	if err != nil || ok {
		return ok, err
	}
	ok, err = t.secondary.Contains(ctx, key)
	if err != nil && t.absorb("contains", err) {
		return false, nil
	}
	return ok, err
}

// absorb reports whether a secondary error is swallowed by resilient mode.
func (t *TwoLevel[K, V]) absorb(op string, err error) bool {
	if !t.resilient || !IsBackendError(err) {
		return false
	}
	t.log.Warn("secondary cache failure ignored", Fields{"op": op, "err": err})
	t.hooks.SecondaryFailure(op, err)
	return true
}

// HitRatio combines both tiers when each exposes statistics (wrap them in
// Stats). ok is false otherwise.
func (t *TwoLevel[K, V]) HitRatio() (ratio float64, ok bool) {
	s1, ok1 := any(t.primary).(Statser)
	s2, ok2 := any(t.secondary).(Statser)
	if !ok1 || !ok2 {
		return 0, false
	}
	a, b := s1.Stats(), s2.Stats()
	return float64(a.Hits+b.Hits) / float64(max(a.Reads+b.Reads, 1)), true
}

// Reset clears statistics of whichever tiers keep them.
func (t *TwoLevel[K, V]) Reset() {
	for _, c := range []any{t.primary, t.secondary} {
		if s, ok := c.(Statser); ok {
			s.Reset()
		}
	}
}
