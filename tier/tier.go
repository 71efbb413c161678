// Package tier is a second-level store for ownercache. Values are framed with
// the generation of their storage key; Invalidate bumps the generation, so a
// frame written before it is rejected (and deleted) by every later Load, in
// this process or any other sharing the provider and GenStore.
//
//	layouts := tier.MustNew(tier.Options[*Class, Layout]{
//	    Namespace: "layout",
//	    Provider:  rp,                    // provider/redis
//	    Codec:     codec.Msgpack[Layout]{},
//	    GenStore:  genstore.NewRedisGenStore(rdb, "layout", 0),
//	    Key:       func(c *Class) string { return c.Name },
//	})
//	cache := ownercache.MustNew(ownercache.Options[*Class, Layout]{
//	    Compute: computeLayout,
//	    Backing: layouts,
//	})
package tier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/ownercache"
	c "github.com/unkn0wn-root/ownercache/codec"
	gen "github.com/unkn0wn-root/ownercache/genstore"
	"github.com/unkn0wn-root/ownercache/internal/util"
	"github.com/unkn0wn-root/ownercache/internal/wire"
	pr "github.com/unkn0wn-root/ownercache/provider"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultSweep        = time.Hour
	defaultGenRetention = 30 * 24 * time.Hour
)

type SetCostFunc func(key string, raw []byte) int64

// Options tune a Tier. Namespace, Provider, Codec and Key are required.
type Options[O any, V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "layout", "vtable"
	Provider  pr.Provider
	Codec     c.Codec[V]
	Key       func(O) string // stable owner key; owners with equal keys share a value

	Logger      ownercache.Logger // if nil, NopLogger is used
	TTL         time.Duration     // provider TTL; 0 => 10m
	Timeout     time.Duration     // per operation; 0 => none
	GenStore    gen.GenStore      // nil => LocalGenStore (in-process)
	ComputeCost SetCostFunc       // default 1
}

// Tier implements ownercache.Backing.
type Tier[O any, V any] struct {
	ns       string
	provider pr.Provider
	codec    c.Codec[V]
	key      func(O) string
	gens     gen.GenStore
	ownsGens bool
	log      ownercache.Logger
	ttl      time.Duration
	timeout  time.Duration
	cost     SetCostFunc
}

var _ ownercache.Backing[string, []byte] = (*Tier[string, []byte])(nil)

func New[O any, V any](opts Options[O, V]) (*Tier[O, V], error) {
	if opts.Provider == nil {
		return nil, errors.New("tier: provider is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("tier: codec is required")
	}
	if opts.Key == nil {
		return nil, errors.New("tier: key function is required")
	}
	if opts.Namespace == "" {
		return nil, errors.New("tier: namespace is required")
	}

	t := &Tier[O, V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		key:      opts.Key,
		gens:     opts.GenStore,
		log:      opts.Logger,
		ttl:      opts.TTL,
		timeout:  opts.Timeout,
		cost:     opts.ComputeCost,
	}
	if t.log == nil {
		t.log = ownercache.NopLogger{}
	}
	if t.ttl == 0 {
		t.ttl = defaultTTL
	}
	if t.cost == nil {
		t.cost = func(string, []byte) int64 { return 1 }
	}
	if t.gens == nil {
		t.gens = gen.NewLocalGenStore(defaultSweep, defaultGenRetention)
		t.ownsGens = true
	}
	return t, nil
}

// MustNew is like New but panics on error.
func MustNew[O any, V any](opts Options[O, V]) *Tier[O, V] {
	t, err := New[O, V](opts)
	if err != nil {
		panic(err)
	}
	return t
}

// Close closes the provider, and the GenStore if the Tier created it.
func (t *Tier[O, V]) Close(ctx context.Context) error {
	if t.ownsGens {
		_ = t.gens.Close(ctx)
	}
	return t.provider.Close(ctx)
}

func (t *Tier[O, V]) ctx() (context.Context, context.CancelFunc) {
	if t.timeout > 0 {
		return context.WithTimeout(context.Background(), t.timeout)
	}
	return context.WithCancel(context.Background())
}

func (t *Tier[O, V]) storageKey(owner O) string {
	return util.StorageKey("oc:"+t.ns, t.key(owner))
}

// Load returns the stored value for owner if its frame carries the current
// generation. Otherwise it returns ok=false and the generation observed
// before reading, to be passed to StoreIf.
func (t *Tier[O, V]) Load(owner O) (V, bool, uint64, error) {
	var zero V
	ctx, cancel := t.ctx()
	defer cancel()

	k := t.storageKey(owner)
	cur, err := t.gens.Snapshot(ctx, k)
	if err != nil {
		return zero, false, 0, fmt.Errorf("tier: snapshot %q: %w", k, err)
	}
	raw, ok, err := t.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, cur, err
	}
	g, payload, err := wire.Decode(raw)
	if err != nil {
		t.heal(ctx, k, "corrupt")
		return zero, false, cur, nil
	}
	if g != cur {
		t.heal(ctx, k, "gen_mismatch")
		return zero, false, cur, nil
	}
	v, err := t.codec.Decode(payload)
	if err != nil {
		t.heal(ctx, k, "value_decode")
		return zero, false, cur, nil
	}
	return v, true, cur, nil
}

func (t *Tier[O, V]) heal(ctx context.Context, k, reason string) {
	_ = t.provider.Del(ctx, k)
	t.log.Debug("tier: dropped unusable frame", ownercache.Fields{"key": k, "reason": reason})
}

// StoreIf writes v iff the generation of owner's key is still observed.
func (t *Tier[O, V]) StoreIf(owner O, v V, observed uint64) error {
	ctx, cancel := t.ctx()
	defer cancel()
	return t.write(ctx, t.storageKey(owner), v, observed)
}

// Store bumps the generation of owner's key and writes v under the new one.
// The bump retires every stamp handed out by Load before it, so an in-flight
// StoreIf cannot replace v with an older computation. If StoreIf still lands
// its frame after the bump, the frame carries the old generation and Load
// drops it as a miss.
func (t *Tier[O, V]) Store(owner O, v V) error {
	ctx, cancel := t.ctx()
	defer cancel()

	k := t.storageKey(owner)
	g, err := t.gens.Bump(ctx, k)
	if err != nil {
		return fmt.Errorf("tier: bump %q: %w", k, err)
	}
	return t.write(ctx, k, v, g)
}

func (t *Tier[O, V]) write(ctx context.Context, k string, v V, observed uint64) error {
	payload, err := t.codec.Encode(v)
	if err != nil {
		return err
	}
	cur, err := t.gens.Snapshot(ctx, k)
	if err != nil {
		return fmt.Errorf("tier: snapshot %q: %w", k, err)
	}
	if cur != observed {
		// generation moved; skip stale write
		t.log.Debug("tier: write skipped (gen mismatch)", ownercache.Fields{"key": k, "obs": observed, "cur": cur})
		return nil
	}
	frame := wire.Encode(observed, payload)
	ok, err := t.provider.Set(ctx, k, frame, t.cost(k, frame), t.ttl)
	if err != nil {
		return err
	}
	if !ok {
		t.log.Debug("tier: write rejected by provider (pressure)", ownercache.Fields{"key": k})
	}
	return nil
}

// Invalidate bumps the generation of owner's key, then deletes its frame.
// Either step alone hides the old frame, so it only fails when both do.
func (t *Tier[O, V]) Invalidate(owner O) error {
	ctx, cancel := t.ctx()
	defer cancel()

	k := t.storageKey(owner)
	_, bumpErr := t.gens.Bump(ctx, k)
	delErr := t.provider.Del(ctx, k)
	switch {
	case bumpErr != nil && delErr != nil:
		return &InvalidateError{Key: k, BumpErr: bumpErr, DelErr: delErr}
	case bumpErr != nil:
		t.log.Warn("tier: gen bump failed; frame deleted", ownercache.Fields{"key": k, "err": bumpErr})
	case delErr != nil:
		t.log.Debug("tier: delete failed; frame hidden by gen bump", ownercache.Fields{"key": k, "err": delErr})
	}
	return nil
}
