package ownercache

import (
	"sync"
	"sync/atomic"
)

var (
	identSeq   atomic.Uint64
	versionSeq atomic.Uint64
)

// golden-ratio increment; consecutive identities spread evenly over the table.
const hashIncrement = 0x9E3779B9

// ident is the non-generic core of a Cache: what stores and tables see.
type ident struct {
	id   uint64
	hash uint32
	name string
	cur  atomic.Pointer[version]
	obs  *observer
}

func newIdent(name string, obs *observer) *ident {
	id := identSeq.Add(1)
	d := &ident{
		id:   id,
		hash: uint32(id * hashIncrement),
		name: name,
		obs:  obs,
	}
	d.cur.Store(d.mint())
	return d
}

// version is one invalidation epoch of a cache. Only pointer identity matters;
// seq is for logs.
type version struct {
	d   *ident
	seq uint64
}

func (d *ident) mint() *version {
	return &version{d: d, seq: versionSeq.Add(1)}
}

func (d *ident) version() *version { return d.cur.Load() }

// bump installs a fresh version. Callers hold the owner lock of the store
// whose state changed; other stores observe the bump lazily.
func (d *ident) bump() *version {
	v := d.mint()
	d.cur.Store(v)
	return v
}

func (v *version) isCurrent() bool { return v.d.cur.Load() == v }

type entryKind uint8

const (
	kindDead entryKind = iota // zero value; never matches a lookup
	kindPromise
	kindCommitted
)

// flight is closed once the promise it belongs to is resolved, whatever the outcome.
type flight struct {
	done    chan struct{}
	once    sync.Once
	revoked bool // set by remove on the same owner; owner lock only
}

func (f *flight) resolve() { f.once.Do(func() { close(f.done) }) }

// entry is immutable after construction.
type entry struct {
	kind  entryKind
	ver   *version
	value any
	fl    *flight // promises only
}

func newPromise(v *version) *entry {
	return &entry{kind: kindPromise, ver: v, fl: &flight{done: make(chan struct{})}}
}

func newCommitted(v *version, value any) *entry {
	return &entry{kind: kindCommitted, ver: v, value: value}
}

// refresh republishes a committed value under v.
func (e *entry) refresh(v *version) *entry {
	if e.ver == v {
		return e
	}
	return newCommitted(v, e.value)
}

func (e *entry) isPromise() bool { return e != nil && e.kind == kindPromise }

func (e *entry) isLive() bool {
	return e != nil && e.kind == kindCommitted && e.ver.isCurrent()
}

// belongsTo reports whether e was created for d, live or not.
func (e *entry) belongsTo(d *ident) bool {
	return e != nil && e.kind != kindDead && e.ver.d == d
}

func (e *entry) home(mask int) int {
	return int(e.ver.d.hash) & mask
}
