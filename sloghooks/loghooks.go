package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/ownercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DiscardEvery uint64
	SweepEvery   uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	discardCtr atomic.Uint64
	sweepCtr   atomic.Uint64
}

var _ ownercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ComputeFailed(cache string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("ownercache.compute_failed",
		"cache", cache,
		"err", err)
}

func (h *Hooks) FinishDiscarded(cache, reason string) {
	if h.l == nil || !sample(h.opts.DiscardEvery, &h.discardCtr) {
		return
	}
	h.l.Debug("ownercache.finish_discarded",
		"cache", cache,
		"reason", reason)
}

func (h *Hooks) TableResized(oldCap, newCap int) {
	if h.l == nil {
		return
	}
	h.l.Info("ownercache.table_resized",
		"old_cap", oldCap,
		"new_cap", newCap)
}

func (h *Hooks) TableSwept(dropped int) {
	if h.l == nil || !sample(h.opts.SweepEvery, &h.sweepCtr) {
		return
	}
	h.l.Debug("ownercache.table_swept",
		"dropped", dropped)
}

func (h *Hooks) EntryDropped(cache string, n int) {
	if h.l == nil {
		return
	}
	h.l.Debug("ownercache.entry_dropped",
		"cache", cache,
		"count", n)
}

func (h *Hooks) BackingError(cache, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("ownercache.backing_error",
		"cache", cache,
		"op", op,
		"err", err)
}
