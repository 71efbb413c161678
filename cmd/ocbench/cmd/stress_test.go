package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/ownercache"
)

func TestRunStress(t *testing.T) {
	mr := miniredis.RunT(t)

	cases := []struct {
		backing string
		codec   string
	}{
		{"none", ""},
		{"ristretto", "msgpack"},
		{"bigcache", "cbor"},
		{"redis", "json"},
	}
	for _, tc := range cases {
		t.Run(tc.backing, func(t *testing.T) {
			cfg := stressConfig{
				Owners:      20,
				Caches:      4,
				Goroutines:  4,
				Duration:    100 * time.Millisecond,
				RemoveRatio: 0.05,
				PutRatio:    0.05,
				Backing:     tc.backing,
				Codec:       tc.codec,
				RedisAddr:   mr.Addr(),
			}
			results, err := runStress(context.Background(), cfg, ownercache.NopLogger{}, zap.NewNop())
			if err != nil {
				t.Fatalf("runStress: %v", err)
			}
			if len(results) != cfg.Caches {
				t.Fatalf("results = %d", len(results))
			}
			var gets uint64
			for _, r := range results {
				gets += r.Stats.Hits + r.Stats.SlowHits + r.Stats.Computes
			}
			if gets == 0 {
				t.Fatalf("no reads recorded")
			}
		})
	}
}

func TestRunStressRejectsBadConfig(t *testing.T) {
	if _, err := runStress(context.Background(), stressConfig{}, ownercache.NopLogger{}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for zero sizes")
	}
	cfg := stressConfig{Owners: 1, Caches: 1, Goroutines: 1, Duration: time.Millisecond, Backing: "memcached"}
	if _, err := runStress(context.Background(), cfg, ownercache.NopLogger{}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown backing")
	}
}
