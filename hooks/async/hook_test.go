package asynchook

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/unkn0wn-root/layercache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recHooks struct {
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recHooks) add(e string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recHooks) SecondaryFailure(op string, _ error) { r.add("secondary:" + op) }
func (r *recHooks) IntegrityFailure(reason string)      { r.add("integrity:" + reason) }
func (r *recHooks) StoreRejected(backend, _ string)     { r.add("rejected:" + backend) }

var _ layercache.Hooks = (*recHooks)(nil)

func TestDeliversAndDrainsOnClose(t *testing.T) {
	rec := &recHooks{}
	h := New(rec, 2, 16)

	h.SecondaryFailure("get", errors.New("down"))
	h.IntegrityFailure("tag_mismatch")
	h.StoreRejected("ristretto", "k")
	h.Close()
	h.Close() // idempotent

	if len(rec.events) != 3 {
		t.Fatalf("events = %v", rec.events)
	}
	h.IntegrityFailure("after close")
	if h.Dropped() != 1 || len(rec.events) != 3 {
		t.Fatalf("event after Close delivered or not counted: dropped=%d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	rec := &recHooks{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// one event held by the worker, one queued, the rest dropped
	for i := 0; i < 10; i++ {
		h.StoreRejected("ristretto", "k")
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	close(rec.block)
	h.Close()
	if got := uint64(len(rec.events)) + h.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped = %d want 10", got)
	}
}
