package ownercache

// ComputeFunc derives the value a cache memoizes for owner.
type ComputeFunc[O any, V any] func(owner O) (V, error)

// Backing is an optional second-level store (see package tier). The goroutine
// that owns a fresh computation consults Load before computing; a computed
// value is handed to StoreIf with the stamp Load observed, before it is
// published in process. Remove calls Invalidate before dropping the
// in-process value; Put calls Store after setting it. Invalidate and Store
// must both retire the stamp, so a StoreIf carrying an older stamp is skipped
// and never overwrites their effect. Implementations must be safe for
// concurrent use.
type Backing[O any, V any] interface {
	Load(owner O) (v V, ok bool, stamp uint64, err error)
	StoreIf(owner O, v V, stamp uint64) error
	Store(owner O, v V) error
	Invalidate(owner O) error
}

// Options configure a Cache. Only Compute is required.
type Options[O Owner, V any] struct {
	// Required
	Compute ComputeFunc[O, V]

	Name        string            // used in logs, hooks and errors; "" => "cache-<id>"
	Equal       func(a, b V) bool // lets Put keep the epoch when the value did not change; nil => always differs
	Backing     Backing[O, V]     // nil => in-process only
	Logger      Logger            // if nil, NopLogger is used
	Hooks       Hooks             // if nil, NopHooks is used
	RecordStats bool              // count hits, waits and retries (costs an atomic add per hit)
}

// New returns a cache definition. One Cache serves any number of owners.
func New[O Owner, V any](opts Options[O, V]) (*Cache[O, V], error) {
	return newCache[O, V](opts)
}

// MustNew is like New but panics on error. Handy for package-level caches.
func MustNew[O Owner, V any](opts Options[O, V]) *Cache[O, V] {
	c, err := New[O, V](opts)
	if err != nil {
		panic(err)
	}
	return c
}
