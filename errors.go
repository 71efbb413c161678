package ownercache

import (
	"errors"
	"fmt"
)

var (
	ErrNilOwner  = errors.New("ownercache: nil owner")
	ErrNilCache  = errors.New("ownercache: nil cache")
	ErrNoCompute = errors.New("ownercache: compute function is required")
)

// ComputeError wraps an error returned by a cache's compute function.
type ComputeError struct {
	Cache string
	Err   error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("ownercache: compute %q: %v", e.Cache, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// BackingError reports a failed second-level operation from Remove or Put.
// The in-process state has already been updated when it is returned.
type BackingError struct {
	Cache string
	Op    string
	Err   error
}

func (e *BackingError) Error() string {
	return fmt.Sprintf("ownercache: %s %q in backing store: %v", e.Op, e.Cache, e.Err)
}

func (e *BackingError) Unwrap() error { return e.Err }

// panicError carries a recovered compute panic to hooks.
type panicError struct{ v any }

func (e panicError) Error() string { return fmt.Sprintf("compute panicked: %v", e.v) }
