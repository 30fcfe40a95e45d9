// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/layercache"
//	asynchook "github.com/unkn0wn-root/layercache/hooks/async"
//	"github.com/unkn0wn-root/layercache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SecondaryFailureEvery: 10, // sample logs: ~every 10th absorbed failure
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	tl := layercache.NewTwoLevel(local, remote, layercache.TwoLevelOptions{
//	    Resilient: true,
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/layercache"
)

// Hooks forwards events to inner on background workers. Events are dropped
// when the queue is full.
type Hooks struct {
	inner   layercache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped uint64
}

var _ layercache.Hooks = (*Hooks)(nil)

func New(inner layercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after Close
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		h.drop()
		return
	}
	select {
	case h.q <- f:
		h.mu.RUnlock()
	default:
		h.mu.RUnlock()
		h.drop()
	}
}

func (h *Hooks) drop() {
	h.mu.Lock()
	h.dropped++
	h.mu.Unlock()
}

func (h *Hooks) SecondaryFailure(op string, err error) {
	h.try(func() { h.inner.SecondaryFailure(op, err) })
}
func (h *Hooks) IntegrityFailure(reason string) { h.try(func() { h.inner.IntegrityFailure(reason) }) }
func (h *Hooks) StoreRejected(backend, key string) {
	h.try(func() { h.inner.StoreRejected(backend, key) })
}
