package registry

import "sync/atomic"

type state int32

const (
	stateActive state = iota
	statePaused
	stateCancelled
)

// Registration binds a Selector to a raw consumer value with lifecycle
// state (spec.md §3). Consumer is stored untyped; pkg/bus's ConsumerInvoker
// coerces it against an event's payload at invocation time.
type Registration struct {
	Selector       Selector
	Consumer       any
	CancelAfterUse bool
	Pausable       bool

	state       int32
	onCancelled func(*Registration)
}

// Cancelled reports whether this registration has been cancelled, either
// explicitly or via cancelAfterUse firing once.
func (r *Registration) Cancelled() bool {
	return atomic.LoadInt32(&r.state) == int32(stateCancelled)
}

// Paused reports whether this registration is currently paused. A paused
// registration is skipped by routing but remains in the registry.
func (r *Registration) Paused() bool {
	return atomic.LoadInt32(&r.state) == int32(statePaused)
}

// Cancel marks the registration cancelled. It is idempotent; only the
// first call triggers the registry's removal hook.
func (r *Registration) Cancel() {
	if atomic.SwapInt32(&r.state, int32(stateCancelled)) != int32(stateCancelled) {
		if r.onCancelled != nil {
			r.onCancelled(r)
		}
	}
}

// Pause transitions an active, pausable registration to paused. It is a
// no-op returning false for non-pausable or already-paused/cancelled
// registrations.
func (r *Registration) Pause() bool {
	if !r.Pausable {
		return false
	}
	return atomic.CompareAndSwapInt32(&r.state, int32(stateActive), int32(statePaused))
}

// Resume transitions a paused registration back to active.
func (r *Registration) Resume() bool {
	if !r.Pausable {
		return false
	}
	return atomic.CompareAndSwapInt32(&r.state, int32(statePaused), int32(stateActive))
}
