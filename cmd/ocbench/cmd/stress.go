package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/ownercache"
	"github.com/unkn0wn-root/ownercache/codec"
	"github.com/unkn0wn-root/ownercache/genstore"
	ocprom "github.com/unkn0wn-root/ownercache/metrics/prometheus"
	"github.com/unkn0wn-root/ownercache/provider"
	"github.com/unkn0wn-root/ownercache/provider/bigcache"
	rp "github.com/unkn0wn-root/ownercache/provider/redis"
	"github.com/unkn0wn-root/ownercache/provider/ristretto"
	"github.com/unkn0wn-root/ownercache/tier"
)

type node struct {
	ownercache.Slot
	ID int
}

// shape is the memoized value; tags cover every codec ocbench can select.
type shape struct {
	Owner int `json:"owner" msgpack:"owner" cbor:"1,keyasint"`
	Cache int `json:"cache" msgpack:"cache" cbor:"2,keyasint"`
	Area  int `json:"area" msgpack:"area" cbor:"3,keyasint"`
}

type stressConfig struct {
	Owners      int
	Caches      int
	Goroutines  int
	Duration    time.Duration
	RemoveRatio float64
	PutRatio    float64
	Backing     string // none, ristretto, bigcache, redis
	Codec       string // json, msgpack, cbor
	RedisAddr   string
	MetricsAddr string
}

type result struct {
	Cache string           `json:"cache"`
	Stats ownercache.Stats `json:"stats"`
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Hammer many caches and owners from concurrent goroutines",
	RunE: func(cmd *cobra.Command, args []string) error {
		zl, log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = zl.Sync() }()

		cfg := stressConfig{
			Owners:      viper.GetInt("stress.owners"),
			Caches:      viper.GetInt("stress.caches"),
			Goroutines:  viper.GetInt("stress.goroutines"),
			Duration:    viper.GetDuration("stress.duration"),
			RemoveRatio: viper.GetFloat64("stress.remove_ratio"),
			PutRatio:    viper.GetFloat64("stress.put_ratio"),
			Backing:     viper.GetString("stress.backing"),
			Codec:       viper.GetString("stress.codec"),
			RedisAddr:   viper.GetString("stress.redis_addr"),
			MetricsAddr: viper.GetString("stress.metrics_addr"),
		}
		zl.Info("starting stress run",
			zap.Int("owners", cfg.Owners),
			zap.Int("caches", cfg.Caches),
			zap.Int("goroutines", cfg.Goroutines),
			zap.Duration("duration", cfg.Duration),
			zap.String("backing", cfg.Backing))

		results, err := runStress(cmd.Context(), cfg, log, zl)
		if err != nil {
			return err
		}
		return printResults(results)
	},
}

func init() {
	f := stressCmd.Flags()
	f.Int("owners", 1000, "number of owners")
	f.Int("caches", 8, "number of caches sharing the owners")
	f.Int("goroutines", 16, "concurrent workers")
	f.Duration("duration", 5*time.Second, "run time")
	f.Float64("remove-ratio", 0.01, "fraction of operations that are Remove")
	f.Float64("put-ratio", 0.01, "fraction of operations that are Put")
	f.String("backing", "none", "second-level store: none, ristretto, bigcache or redis")
	f.String("codec", "msgpack", "backing codec: json, msgpack or cbor")
	f.String("redis-addr", "localhost:6379", "redis address for --backing=redis")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while running (e.g. :9090)")

	for _, name := range []string{"owners", "caches", "goroutines", "duration", "remove-ratio", "put-ratio", "backing", "codec", "redis-addr", "metrics-addr"} {
		_ = viper.BindPFlag("stress."+strings.ReplaceAll(name, "-", "_"), f.Lookup(name))
	}
	rootCmd.AddCommand(stressCmd)
}

func runStress(ctx context.Context, cfg stressConfig, log ownercache.Logger, zl *zap.Logger) ([]result, error) {
	if cfg.Owners <= 0 || cfg.Caches <= 0 || cfg.Goroutines <= 0 {
		return nil, errors.New("owners, caches and goroutines must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// one provider and GenStore serve every cache; namespaces keep them apart
	var (
		prov provider.Provider
		gens genstore.GenStore
	)
	switch cfg.Backing {
	case "", "none":
	case "ristretto":
		p, err := ristretto.New(ristretto.Config{NumCounters: int64(cfg.Owners * cfg.Caches * 10), MaxCost: 1 << 26, BufferItems: 64})
		if err != nil {
			return nil, err
		}
		prov = p
	case "bigcache":
		p, err := bigcache.New(bigcache.Config{LifeWindow: 10 * time.Minute, Shards: 64})
		if err != nil {
			return nil, err
		}
		prov = p
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		p, err := rp.New(rp.Config{Client: rdb})
		if err != nil {
			return nil, err
		}
		prov = p
		gens = genstore.NewRedisGenStore(rdb, "ocbench", time.Hour)
	default:
		return nil, fmt.Errorf("unknown backing %q", cfg.Backing)
	}
	if prov != nil {
		defer prov.Close(context.Background())
		if gens == nil {
			gens = genstore.NewLocalGenStore(time.Minute, time.Hour)
		}
		defer gens.Close(context.Background())
	}

	cdc, err := pickCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	caches := make([]*ownercache.Cache[*node, shape], cfg.Caches)
	for i := range caches {
		i := i
		opts := ownercache.Options[*node, shape]{
			Name: fmt.Sprintf("shape-%d", i),
			Compute: func(o *node) (shape, error) {
				return shape{Owner: o.ID, Cache: i, Area: o.ID * (i + 1)}, nil
			},
			Equal:       func(a, b shape) bool { return a == b },
			Logger:      log,
			RecordStats: true,
		}
		if prov != nil {
			tr, err := tier.New(tier.Options[*node, shape]{
				Namespace: opts.Name,
				Provider:  prov,
				Codec:     cdc,
				Key:       func(o *node) string { return strconv.Itoa(o.ID) },
				Logger:    log,
				GenStore:  gens,
				Timeout:   time.Second,
			})
			if err != nil {
				return nil, err
			}
			opts.Backing = tr
		}
		caches[i] = ownercache.MustNew(opts)
	}

	if cfg.MetricsAddr != "" {
		reg := promclient.NewRegistry()
		col := ocprom.NewCollector("ocbench")
		for _, c := range caches {
			col.Add(c)
		}
		reg.MustRegister(col)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		zl.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	owners := make([]*node, cfg.Owners)
	for i := range owners {
		owners[i] = &node{ID: i}
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
		cancel()
	}
	for g := 0; g < cfg.Goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for runCtx.Err() == nil {
				o := owners[rnd.Intn(len(owners))]
				ci := rnd.Intn(len(caches))
				c := caches[ci]
				want := shape{Owner: o.ID, Cache: ci, Area: o.ID * (ci + 1)}
				switch r := rnd.Float64(); {
				case r < cfg.RemoveRatio:
					if err := c.Remove(o); err != nil {
						zl.Warn("remove failed", zap.String("cache", c.Name()), zap.Error(err))
					}
				case r < cfg.RemoveRatio+cfg.PutRatio:
					if err := c.Put(o, want); err != nil {
						zl.Warn("put failed", zap.String("cache", c.Name()), zap.Error(err))
					}
				default:
					v, err := c.Get(o)
					if err != nil {
						fail(err)
						return
					}
					if v != want {
						fail(fmt.Errorf("%s owner %d: got %+v want %+v", c.Name(), o.ID, v, want))
						return
					}
				}
			}
		}(int64(g) + 1)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	results := make([]result, len(caches))
	for i, c := range caches {
		results[i] = result{Cache: c.Name(), Stats: c.Stats()}
	}
	return results, nil
}

func pickCodec(name string) (codec.Codec[shape], error) {
	switch name {
	case "", "msgpack":
		return codec.Msgpack[shape]{}, nil
	case "json":
		return codec.JSON[shape]{}, nil
	case "cbor":
		return codec.NewCBOR[shape](true)
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

func printResults(results []result) error {
	if IsJSONOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	u := func(n uint64) string { return strconv.FormatUint(n, 10) }
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Cache", "Hits", "Slow Hits", "Computes", "Backing Hits", "Waits", "Retries", "Removes", "Puts", "Resizes", "Dropped")
	for _, r := range results {
		s := r.Stats
		table.Append([]string{r.Cache, u(s.Hits), u(s.SlowHits), u(s.Computes), u(s.BackingHits), u(s.Waits), u(s.Retries), u(s.Removes), u(s.Puts), u(s.Resizes), u(s.Dropped)})
	}
	table.Render()
	return nil
}
