package ownercache

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Owner is anything values can be memoized for. Embedding Slot is the usual
// way to implement it:
//
//	type Class struct {
//		ownercache.Slot
//		Name string
//	}
//
// *Class then satisfies Owner.
type Owner interface {
	CacheSlot() *Slot
}

// Slot holds the per-owner state shared by every Cache. It is created lazily
// on first access and lives as long as the owner. A Slot must not be copied
// after first use.
type Slot struct {
	mu sync.Mutex
	st atomic.Pointer[store]
}

// CacheSlot implements Owner.
func (s *Slot) CacheSlot() *Slot { return s }

func (s *Slot) peek() *store { return s.st.Load() }

func (s *Slot) get() *store {
	if st := s.st.Load(); st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.st.Load(); st != nil {
		return st
	}
	st := newStore()
	s.st.Store(st)
	return st
}

// Len reports how many caches currently hold state (a value or an in-flight
// computation) for the owner of s.
func (s *Slot) Len() int {
	st := s.peek()
	if st == nil {
		return 0
	}
	return st.entries()
}

// slotOf resolves the slot of owner, rejecting nil owners (including typed
// nil pointers whose CacheSlot would dereference nil). A panic raised by
// CacheSlot itself propagates to the caller.
func slotOf[O Owner](owner O) (*Slot, error) {
	if any(owner) == nil {
		return nil, ErrNilOwner
	}
	if rv := reflect.ValueOf(owner); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, ErrNilOwner
	}
	if s := owner.CacheSlot(); s != nil {
		return s, nil
	}
	return nil, ErrNilOwner
}
