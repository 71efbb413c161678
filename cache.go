package ownercache

import (
	"fmt"
)

// Cache memoizes Compute(owner) per owner. Reads of a committed value take
// no locks; computing, removing and putting serialize on the owner only.
type Cache[O Owner, V any] struct {
	d       *ident
	obs     *observer
	compute ComputeFunc[O, V]
	equal   func(a, b any) bool
	backing Backing[O, V]
}

func newCache[O Owner, V any](opts Options[O, V]) (*Cache[O, V], error) {
	if opts.Compute == nil {
		return nil, ErrNoCompute
	}

	obs := &observer{
		log:    coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:  coalesce[Hooks](opts.Hooks, NopHooks{}),
		record: opts.RecordStats,
	}
	d := newIdent(opts.Name, obs)
	if d.name == "" {
		d.name = fmt.Sprintf("cache-%d", d.id)
	}

	c := &Cache[O, V]{
		d:       d,
		obs:     obs,
		compute: opts.Compute,
		backing: opts.Backing,
	}
	if eq := opts.Equal; eq != nil {
		c.equal = func(a, b any) bool {
			av, _ := a.(V)
			bv, _ := b.(V)
			return eq(av, bv)
		}
	}
	return c, nil
}

// Name returns the name used in logs, hooks and errors.
func (c *Cache[O, V]) Name() string { return c.d.name }

// Stats returns a snapshot of the cache's counters.
func (c *Cache[O, V]) Stats() Stats { return c.obs.snapshot() }

// Get returns the value for owner, computing it at most once per epoch unless
// a concurrent Remove or Put intervenes. Compute errors are returned as
// *ComputeError and nothing is cached. Compute must not call Get on the same
// cache and owner.
//
// A computation is only thrown away when Remove or Put for the same owner
// lands while it runs; invalidations of other owners do not restart it.
func (c *Cache[O, V]) Get(owner O) (V, error) {
	var zero V
	if c == nil {
		return zero, ErrNilCache
	}
	sl, err := slotOf(owner)
	if err != nil {
		return zero, err
	}
	if s := sl.peek(); s != nil {
		if e := s.lookup(c.d); e != nil {
			c.obs.hit()
			return valueOf[V](e), nil
		}
	}
	return c.getSlow(sl.get(), owner)
}

func (c *Cache[O, V]) getSlow(s *store, owner O) (V, error) {
	for {
		e, owned := s.start(c.d)
		if !e.isPromise() {
			c.obs.slowHit()
			return valueOf[V](e), nil
		}
		if !owned {
			c.obs.wait()
			<-e.fl.done
			continue
		}

		v, err := c.produce(s, owner, e)
		if err != nil {
			var zero V
			return zero, err
		}
		ce, res := s.finish(c.d, e, v)
		if res != finishCommitted {
			c.obs.discarded(c.d, res)
			continue
		}
		return valueOf[V](ce), nil
	}
}

// produce obtains a value for promise p outside the owner lock, from the
// Backing or by computing it. A computed value is written back while p is
// still pending, so a Put or Remove that lands meanwhile moves the Backing
// generation first and the write is skipped. p is rolled back on every exit
// that does not return a value, including panics and runtime.Goexit.
func (c *Cache[O, V]) produce(s *store, owner O, p *entry) (v V, err error) {
	ok := false
	defer func() {
		if ok {
			return
		}
		rec := recover()
		s.rollback(c.d, p)
		if rec != nil {
			c.obs.computeFailed(c.d, panicError{rec})
			c.obs.log.Error("compute panicked", Fields{"cache": c.d.name, "panic": rec})
			panic(rec)
		}
	}()

	var stamp uint64
	writeBack := false
	if c.backing != nil {
		bv, hit, st, berr := c.backing.Load(owner)
		switch {
		case berr != nil:
			c.obs.backingFailed(c.d, "load", berr)
		case hit:
			c.obs.backingHit()
			ok = true
			return bv, nil
		default:
			stamp, writeBack = st, true
		}
	}

	c.obs.computed()
	v, err = c.compute(owner)
	if err != nil {
		c.obs.computeFailed(c.d, err)
		var zero V
		return zero, &ComputeError{Cache: c.d.name, Err: err}
	}
	if writeBack {
		if err := c.backing.StoreIf(owner, v, stamp); err != nil {
			c.obs.backingFailed(c.d, "store", err)
		}
	}
	ok = true
	return v, nil
}

// Remove drops the value for owner. The next Get recomputes it. Removing an
// absent value is a no-op for the in-process state; the Backing, if any, is
// always invalidated, and before the in-process state so that a Get racing
// Remove cannot reload the old value from it.
func (c *Cache[O, V]) Remove(owner O) error {
	if c == nil {
		return ErrNilCache
	}
	sl, err := slotOf(owner)
	if err != nil {
		return err
	}
	var berr error
	if c.backing != nil {
		if err := c.backing.Invalidate(owner); err != nil {
			c.obs.backingFailed(c.d, "invalidate", err)
			berr = &BackingError{Cache: c.d.name, Op: "invalidate", Err: err}
		}
	}
	if s := sl.peek(); s != nil && s.remove(c.d) {
		c.obs.removed()
	}
	return berr
}

// Put sets the value for owner without computing. Fast-path readers of the
// previous value observe the new one from their next call on.
func (c *Cache[O, V]) Put(owner O, v V) error {
	if c == nil {
		return ErrNilCache
	}
	sl, err := slotOf(owner)
	if err != nil {
		return err
	}
	sl.get().put(c.d, v, c.equal)
	c.obs.put()
	if c.backing != nil {
		if err := c.backing.Store(owner, v); err != nil {
			c.obs.backingFailed(c.d, "store", err)
			return &BackingError{Cache: c.d.name, Op: "store", Err: err}
		}
	}
	return nil
}

func valueOf[V any](e *entry) V {
	v, _ := e.value.(V)
	return v
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
