package prometheus

import (
	"strings"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/ownercache"
)

type owner struct {
	ownercache.Slot
	n int
}

func TestCollectorReportsCacheStats(t *testing.T) {
	c := ownercache.MustNew(ownercache.Options[*owner, int]{
		Name:        "double",
		Compute:     func(o *owner) (int, error) { return o.n * 2, nil },
		RecordStats: true,
	})
	o := &owner{n: 4}
	for i := 0; i < 3; i++ {
		if _, err := c.Get(o); err != nil {
			t.Fatal(err)
		}
	}
	_ = c.Put(o, 1)

	col := NewCollector("test", c)
	reg := promclient.NewPedanticRegistry()
	reg.MustRegister(col)

	want := `
# HELP test_ownercache_computes_total Compute function invocations.
# TYPE test_ownercache_computes_total counter
test_ownercache_computes_total{cache="double"} 1
# HELP test_ownercache_hits_total Lock-free fast path hits.
# TYPE test_ownercache_hits_total counter
test_ownercache_hits_total{cache="double"} 2
# HELP test_ownercache_puts_total Explicit puts.
# TYPE test_ownercache_puts_total counter
test_ownercache_puts_total{cache="double"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(want),
		"test_ownercache_computes_total", "test_ownercache_hits_total", "test_ownercache_puts_total")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorAdd(t *testing.T) {
	col := NewCollector("")
	if n := testutil.CollectAndCount(col); n != 0 {
		t.Fatalf("metrics without sources = %d", n)
	}
	col.Add(ownercache.MustNew(ownercache.Options[*owner, int]{
		Compute: func(*owner) (int, error) { return 0, nil },
	}))
	if n := testutil.CollectAndCount(col); n != 12 {
		t.Fatalf("metrics = %d want 12", n)
	}
}
