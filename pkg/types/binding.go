package types

import "errors"

// Strategy is how a binding learns about changes it did not make.
type Strategy int

// Change detection strategies.
const (
	// StrategyPoll re-reads the key on every poller tick.
	StrategyPoll Strategy = iota
	// StrategyPush relies on storage events delivered by other windows.
	StrategyPush
)

func (s Strategy) String() string {
	if s == StrategyPush {
		return "push"
	}
	return "poll"
}

// Binding is a live subscription to one key in one backend.
type Binding interface {
	// Key returns the bound key.
	Key() string

	// Backend returns the bound backend.
	Backend() Backend

	// Strategy returns how the binding detects external changes.
	Strategy() Strategy

	// Value returns the current typed value, or the configured default
	// while the key is absent.
	Value() Value

	// Has reports whether the backend held a value at the last observation.
	Has() bool

	// Set writes v, or removes the key when v is Absent, and notifies the
	// subscriber. On failure the binding state is unchanged.
	Set(v Value) error

	// Check re-reads the key and publishes the value if it changed since the
	// last observation. It reports whether anything was published.
	Check() bool

	// Release stops change detection. Idempotent.
	Release()
}

// Lifecycle errors.
var (
	ErrReleased        = errors.New("binding is released")
	ErrShelfDetached   = errors.New("shelf is detached")
	ErrAlreadyAttached = errors.New("shelf is already attached")
	ErrWindowClosed    = errors.New("window is closed")
)

// ErrUnencodable is returned when a value has no text encoding.
var ErrUnencodable = errors.New("value cannot be encoded")
