package ownercache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Table events are reported while the owner lock is held.
type Hooks interface {
	// The compute function returned an error (or panicked, err wraps the panic value).
	ComputeFailed(cache string, err error)

	// A computed value was thrown away and the caller retried.
	// reason ∈ {"stale_version", "replaced"}
	FinishDiscarded(cache, reason string)

	// An owner's fast table grew.
	TableResized(oldCap, newCap int)

	// Non-live slots were dropped from an owner's fast table.
	TableSwept(dropped int)

	// Live entries found no slot within their probe range. They stay
	// reachable through the slow path.
	EntryDropped(cache string, n int)

	// The second-level Backing failed. op ∈ {"load", "store", "invalidate"}
	BackingError(cache, op string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ComputeFailed(string, error)        {}
func (NopHooks) FinishDiscarded(string, string)     {}
func (NopHooks) TableResized(int, int)              {}
func (NopHooks) TableSwept(int)                     {}
func (NopHooks) EntryDropped(string, int)           {}
func (NopHooks) BackingError(string, string, error) {}
