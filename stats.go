package ownercache

import "sync/atomic"

// Stats is a point-in-time snapshot of a cache's counters. Hit, wait and
// retry counters only move when Options.RecordStats is set; table and
// failure counters always do.
type Stats struct {
	Hits          uint64 // lock-free fast path hits
	SlowHits      uint64 // resolved under the owner lock without computing
	Computes      uint64 // compute function invocations
	ComputeErrors uint64
	BackingHits   uint64 // values served by the Backing instead of compute
	Waits         uint64 // callers that waited on another goroutine's computation
	Retries       uint64 // discarded finishes
	Removes       uint64
	Puts          uint64
	Resizes       uint64
	Sweeps        uint64
	Dropped       uint64 // live entries that found no fast-table slot
}

// observer fans events out to counters, hooks and the logger.
type observer struct {
	log    Logger
	hooks  Hooks
	record bool

	hits, slowHits, computes, computeErrs, backingHits atomic.Uint64
	waits, retries, removes, puts                      atomic.Uint64
	resizes, sweeps, droppedN                          atomic.Uint64
}

func (o *observer) hit() {
	if o.record {
		o.hits.Add(1)
	}
}

func (o *observer) slowHit() {
	if o.record {
		o.slowHits.Add(1)
	}
}

func (o *observer) wait() {
	if o.record {
		o.waits.Add(1)
	}
}

func (o *observer) computed() { o.computes.Add(1) }

func (o *observer) backingHit() { o.backingHits.Add(1) }

func (o *observer) removed() { o.removes.Add(1) }

func (o *observer) put() { o.puts.Add(1) }

func (o *observer) computeFailed(d *ident, err error) {
	o.computeErrs.Add(1)
	o.hooks.ComputeFailed(d.name, err)
}

func (o *observer) discarded(d *ident, r finishResult) {
	if o.record {
		o.retries.Add(1)
	}
	o.hooks.FinishDiscarded(d.name, r.String())
	o.log.Debug("computed value discarded, retrying", Fields{"cache": d.name, "reason": r.String()})
}

func (o *observer) backingFailed(d *ident, op string, err error) {
	o.hooks.BackingError(d.name, op, err)
	o.log.Warn("backing store error", Fields{"cache": d.name, "op": op, "err": err})
}

func (o *observer) swept(d *ident, n int) {
	o.sweeps.Add(1)
	o.hooks.TableSwept(n)
	if n > 0 {
		o.log.Debug("fast table swept", Fields{"cache": d.name, "dropped": n})
	}
}

func (o *observer) resized(d *ident, oldCap, newCap int) {
	o.resizes.Add(1)
	o.hooks.TableResized(oldCap, newCap)
	o.log.Debug("fast table grown", Fields{"cache": d.name, "old": oldCap, "new": newCap})
}

func (o *observer) dropped(d *ident, n int) {
	o.droppedN.Add(uint64(n))
	o.hooks.EntryDropped(d.name, n)
}

func (o *observer) snapshot() Stats {
	return Stats{
		Hits:          o.hits.Load(),
		SlowHits:      o.slowHits.Load(),
		Computes:      o.computes.Load(),
		ComputeErrors: o.computeErrs.Load(),
		BackingHits:   o.backingHits.Load(),
		Waits:         o.waits.Load(),
		Retries:       o.retries.Load(),
		Removes:       o.removes.Load(),
		Puts:          o.puts.Load(),
		Resizes:       o.resizes.Load(),
		Sweeps:        o.sweeps.Load(),
		Dropped:       o.droppedN.Load(),
	}
}
