// Package prometheus exports ownercache counters as Prometheus metrics.
//
//	col := prometheus.NewCollector("myapp", layoutCache, vtableCache)
//	reg.MustRegister(col)
//
// Every metric carries a "cache" label with the cache's Name.
package prometheus

import (
	"sync"

	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/ownercache"
)

// Source is anything with ownercache Stats; *ownercache.Cache satisfies it.
type Source interface {
	Name() string
	Stats() ownercache.Stats
}

type counterDesc struct {
	desc *promclient.Desc
	get  func(ownercache.Stats) uint64
}

// Collector reads Stats on every scrape. It holds no counters of its own.
type Collector struct {
	mu       sync.RWMutex
	sources  []Source
	counters []counterDesc
}

var _ promclient.Collector = (*Collector)(nil)

func NewCollector(namespace string, sources ...Source) *Collector {
	d := func(name, help string) *promclient.Desc {
		return promclient.NewDesc(
			promclient.BuildFQName(namespace, "ownercache", name),
			help, []string{"cache"}, nil,
		)
	}
	return &Collector{
		sources: sources,
		counters: []counterDesc{
			{d("hits_total", "Lock-free fast path hits."), func(s ownercache.Stats) uint64 { return s.Hits }},
			{d("slow_hits_total", "Hits resolved under the owner lock without computing."), func(s ownercache.Stats) uint64 { return s.SlowHits }},
			{d("computes_total", "Compute function invocations."), func(s ownercache.Stats) uint64 { return s.Computes }},
			{d("compute_errors_total", "Compute calls that failed or panicked."), func(s ownercache.Stats) uint64 { return s.ComputeErrors }},
			{d("backing_hits_total", "Values served by the second-level store."), func(s ownercache.Stats) uint64 { return s.BackingHits }},
			{d("waits_total", "Callers that waited on another goroutine's computation."), func(s ownercache.Stats) uint64 { return s.Waits }},
			{d("retries_total", "Computed values discarded because the epoch moved or the value was replaced."), func(s ownercache.Stats) uint64 { return s.Retries }},
			{d("removes_total", "Removes that dropped a committed value."), func(s ownercache.Stats) uint64 { return s.Removes }},
			{d("puts_total", "Explicit puts."), func(s ownercache.Stats) uint64 { return s.Puts }},
			{d("table_resizes_total", "Fast table growths."), func(s ownercache.Stats) uint64 { return s.Resizes }},
			{d("table_sweeps_total", "Fast table sweeps."), func(s ownercache.Stats) uint64 { return s.Sweeps }},
			{d("dropped_entries_total", "Live entries that found no fast table slot."), func(s ownercache.Stats) uint64 { return s.Dropped }},
		},
	}
}

// Add registers more caches after construction.
func (c *Collector) Add(sources ...Source) {
	c.mu.Lock()
	c.sources = append(c.sources, sources...)
	c.mu.Unlock()
}

func (c *Collector) Describe(ch chan<- *promclient.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
}

func (c *Collector) Collect(ch chan<- promclient.Metric) {
	c.mu.RLock()
	sources := append([]Source(nil), c.sources...)
	c.mu.RUnlock()

	for _, src := range sources {
		st := src.Stats()
		for _, cd := range c.counters {
			ch <- promclient.MustNewConstMetric(cd.desc, promclient.CounterValue, float64(cd.get(st)), src.Name())
		}
	}
}
