package counter

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalStartsAtZeroAndIncrements(t *testing.T) {
	ctx := context.Background()
	c := NewLocal()
	for want := uint64(0); want < 5; want++ {
		got, err := c.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("Next=%d want %d", got, want)
		}
	}
	if c.Peek() != 5 {
		t.Fatalf("Peek=%d want 5", c.Peek())
	}
}

func TestLocalConcurrentValuesAreDistinct(t *testing.T) {
	ctx := context.Background()
	c := NewLocal()

	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[uint64]bool, n)
		wg   sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			v, _ := c.Next(ctx)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("got %d distinct values, want %d", len(seen), n)
	}
}

func TestRedisCounterSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a := NewRedis(rdb, "app")
	b := NewRedis(rdb, "app")

	v0, err := a.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	v1, err := b.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v0 != 0 || v1 != 1 {
		t.Fatalf("got %d,%d want 0,1", v0, v1)
	}

	other := NewRedis(rdb, "other")
	if v, _ := other.Next(ctx); v != 0 {
		t.Fatalf("separate name should start at 0, got %d", v)
	}
}

func TestRedisCounterSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mr.SetError("LOADING")
	if _, err := NewRedis(rdb, "x").Next(context.Background()); err == nil {
		t.Fatal("expected error from failing redis")
	}
}
