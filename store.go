package ownercache

import (
	"sync"
	"sync/atomic"
)

type finishResult uint8

const (
	finishCommitted finishResult = iota
	finishStale                  // the version moved while computing
	finishReplaced               // the promise is no longer in the map
)

func (r finishResult) String() string {
	switch r {
	case finishCommitted:
		return "committed"
	case finishStale:
		return "stale_version"
	default:
		return "replaced"
	}
}

// store is the authoritative per-owner state. Every Promise is created and
// resolved here, under mu.
type store struct {
	mu  sync.Mutex
	m   map[uint64]*entry // cache id -> entry
	tbl atomic.Pointer[table]
}

func newStore() *store {
	s := &store{m: make(map[uint64]*entry)}
	s.tbl.Store(newTable(initialCapacity))
	return s
}

// lookup is the lock-free read path.
func (s *store) lookup(d *ident) *entry {
	t := s.tbl.Load()
	cur := d.version()
	if e := t.probeHome(d, cur); e != nil {
		return e
	}
	return t.probeBackup(d, cur)
}

// start resolves the authoritative state of d. It returns a committed entry,
// or a promise plus whether the caller owns (must compute) it.
func (s *store) start(d *ident) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := d.version()
	e := s.m[d.id]
	switch {
	case e == nil:
		p := newPromise(cur)
		s.m[d.id] = p
		return p, true
	case e.isPromise():
		if e.ver == cur || !e.fl.revoked {
			// an epoch moved by other owners does not invalidate this computation
			return e, false
		}
		// removed while computing; take over and let its waiters retry
		p := newPromise(cur)
		s.m[d.id] = p
		e.fl.resolve()
		return p, true
	default:
		e = e.refresh(cur)
		s.m[d.id] = e
		s.publish(d, e)
		return e, false
	}
}

// finish publishes value for promise p if p is still the authoritative entry
// and no remove on this owner intervened. A value whose epoch was only moved
// by other owners is committed under the current version.
func (s *store) finish(d *ident, p *entry, value any) (*entry, finishResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer p.fl.resolve()

	if s.m[d.id] != p {
		return nil, finishReplaced
	}
	cur := d.version()
	if p.ver != cur && p.fl.revoked {
		delete(s.m, d.id)
		return nil, finishStale
	}
	e := newCommitted(cur, value)
	s.m[d.id] = e
	s.publish(d, e)
	return e, finishCommitted
}

// rollback withdraws p after a failed computation.
func (s *store) rollback(d *ident, p *entry) {
	s.mu.Lock()
	if s.m[d.id] == p {
		delete(s.m, d.id)
	}
	s.mu.Unlock()
	p.fl.resolve()
}

// remove de-initializes d for this owner. An in-flight promise is kept but
// revoked and its epoch retired, so its result is discarded.
func (s *store) remove(d *ident) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.m[d.id]
	switch {
	case e == nil:
		return false
	case e.isPromise():
		e.fl.revoked = true
		d.bump()
		return false
	default:
		delete(s.m, d.id)
		d.bump()
		s.tbl.Load().clear(d)
		return true
	}
}

// put installs value unconditionally. equal may be nil.
func (s *store) put(d *ident, value any, equal func(a, b any) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := d.version()
	old := s.m[d.id]
	switch {
	case old == nil:
	case old.isPromise():
		defer old.fl.resolve()
	case equal == nil || !equal(old.value, value):
		cur = d.bump()
	}
	e := newCommitted(cur, value)
	s.m[d.id] = e
	s.publish(d, e)
}

// publish mirrors e into the fast table, making room first. Owner lock held.
func (s *store) publish(d *ident, e *entry) {
	t := s.tbl.Load()
	if t.used >= t.threshold() {
		t = s.makeRoom(d, t)
	}
	if dropped := t.add(e); dropped > 0 {
		d.obs.dropped(d, dropped)
	}
}

func (s *store) makeRoom(d *ident, t *table) *table {
	swept := t.sweep()
	d.obs.swept(d, swept)
	if t.used < t.threshold() || len(t.slots) >= maxCapacity {
		return t
	}
	nt, dropped := t.grow()
	s.tbl.Store(nt)
	d.obs.resized(d, len(t.slots), len(nt.slots))
	if dropped > 0 {
		d.obs.dropped(d, dropped)
	}
	return nt
}

// entries reports how many caches have authoritative state for this owner.
func (s *store) entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
