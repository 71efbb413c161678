// Package asynchook moves ownercache hook delivery off the caller's goroutine.
// Events are queued to a fixed worker pool and dropped when the queue is full,
// so a slow sink never stalls Get or holds an owner lock longer.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SweepEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache := ownercache.MustNew(ownercache.Options[*Class, *Layout]{
//	    Name:    "layout",
//	    Compute: computeLayout,
//	    Hooks:   hooks,
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/ownercache"
)

type Hooks struct {
	inner   ownercache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ ownercache.Hooks = (*Hooks)(nil)

func New(inner ownercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events fired after Close
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) ComputeFailed(c string, err error) { h.try(func() { h.inner.ComputeFailed(c, err) }) }
func (h *Hooks) FinishDiscarded(c, r string)       { h.try(func() { h.inner.FinishDiscarded(c, r) }) }
func (h *Hooks) TableResized(o, n int)             { h.try(func() { h.inner.TableResized(o, n) }) }
func (h *Hooks) TableSwept(n int)                  { h.try(func() { h.inner.TableSwept(n) }) }
func (h *Hooks) EntryDropped(c string, n int)      { h.try(func() { h.inner.EntryDropped(c, n) }) }
func (h *Hooks) BackingError(c, op string, err error) {
	h.try(func() { h.inner.BackingError(c, op, err) })
}
