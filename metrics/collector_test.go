package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/layercache"
	"github.com/unkn0wn-root/layercache/provider/memory"
)

func TestCollectorExportsStats(t *testing.T) {
	ctx := context.Background()
	users := layercache.NewStats[string, int](memory.New[string, int]())
	_ = users.Set(ctx, "a", 1, 0)
	_, _ = users.Get(ctx, "a")
	_, _ = users.Get(ctx, "b")

	c := NewCollector("app")
	c.Add("users", users)

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	expected := `
# HELP app_cache_hit_ratio Hits over reads since the last reset.
# TYPE app_cache_hit_ratio gauge
app_cache_hit_ratio{cache="users"} 0.5
# HELP app_cache_hits_total Get calls that returned a value.
# TYPE app_cache_hits_total counter
app_cache_hits_total{cache="users"} 1
# HELP app_cache_reads_total Get calls.
# TYPE app_cache_reads_total counter
app_cache_reads_total{cache="users"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"app_cache_hit_ratio", "app_cache_hits_total", "app_cache_reads_total"); err != nil {
		t.Fatal(err)
	}

	if n := testutil.CollectAndCount(c); n != 8 {
		t.Fatalf("series = %d want 8", n)
	}
	c.Remove("users")
	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("series after Remove = %d", n)
	}
}
