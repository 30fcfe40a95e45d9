// Package metrics exports cache statistics to Prometheus.
package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/layercache"
)

// Collector reads every registered Statser at scrape time. It holds no
// counters of its own, so a Reset on a cache shows up as a counter reset.
type Collector struct {
	mu      sync.RWMutex
	sources map[string]layercache.Statser

	tests    *prometheus.Desc
	testHits *prometheus.Desc
	reads    *prometheus.Desc
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	writes   *prometheus.Desc
	deletes  *prometheus.Desc
	hitRatio *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector names metrics <namespace>_cache_*; every series carries a
// "cache" label with the name the source was added under.
func NewCollector(namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, []string{"cache"}, nil)
	}
	return &Collector{
		sources:  make(map[string]layercache.Statser),
		tests:    desc("tests_total", "Contains calls."),
		testHits: desc("test_hits_total", "Contains calls that found the key."),
		reads:    desc("reads_total", "Get calls."),
		hits:     desc("hits_total", "Get calls that returned a value."),
		misses:   desc("misses_total", "Get calls that found no value."),
		writes:   desc("writes_total", "Set calls."),
		deletes:  desc("deletes_total", "Delete calls."),
		hitRatio: desc("hit_ratio", "Hits over reads since the last reset."),
	}
}

// Add registers s under name, replacing any previous source of that name.
func (c *Collector) Add(name string, s layercache.Statser) {
	c.mu.Lock()
	c.sources[name] = s
	c.mu.Unlock()
}

func (c *Collector) Remove(name string) {
	c.mu.Lock()
	delete(c.sources, name)
	c.mu.Unlock()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.tests, c.testHits, c.reads, c.hits, c.misses, c.writes, c.deletes, c.hitRatio} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	names := make([]string, 0, len(c.sources))
	for n := range c.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	snaps := make([]layercache.StatsSnapshot, len(names))
	for i, n := range names {
		snaps[i] = c.sources[n].Stats()
	}
	c.mu.RUnlock()

	for i, n := range names {
		s := snaps[i]
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), n)
		}
		counter(c.tests, s.Tests)
		counter(c.testHits, s.TestHits)
		counter(c.reads, s.Reads)
		counter(c.hits, s.Hits)
		counter(c.misses, s.Misses)
		counter(c.writes, s.Writes)
		counter(c.deletes, s.Deletes)
		ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, s.HitRate, n)
	}
}
