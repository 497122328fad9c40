package registry

import "sync"

// RegOption configures a Registration at construction time.
type RegOption func(*Registration)

// CancelAfterUse marks a registration for automatic cancellation once its
// consumer has been invoked successfully (spec.md §3 "cancelAfterUse").
func CancelAfterUse() RegOption {
	return func(r *Registration) { r.CancelAfterUse = true }
}

// WithPausable allows a registration to be paused and resumed. Registrations
// are not pausable by default.
func WithPausable() RegOption {
	return func(r *Registration) { r.Pausable = true }
}

// Registry maps dispatch keys to matching registrations. Memory is the
// module's C2 default: spec.md treats the registry as an external,
// cache-backed collaborator; this implementation favors a small, obviously
// correct linear scan under an RWMutex over the prefix/class indexing a
// production registry would add, since nothing in this module depends on
// that indexing's performance characteristics.
type Memory struct {
	mu   sync.RWMutex
	regs []*Registration
}

// NewMemory returns an empty in-memory Registry.
func NewMemory() *Memory {
	return &Memory{}
}

// Register adds a new Registration for selector/consumer and returns it.
func (m *Memory) Register(sel Selector, consumer any, opts ...RegOption) *Registration {
	reg := &Registration{Selector: sel, Consumer: consumer}
	for _, o := range opts {
		o(reg)
	}
	reg.onCancelled = m.remove

	m.mu.Lock()
	m.regs = append(m.regs, reg)
	m.mu.Unlock()
	return reg
}

// Select returns a snapshot, in registration order, of every non-cancelled
// registration whose Selector matches key. Because the slice returned is a
// copy, mutation of the registry during routing (a registration cancelling
// itself, a new registration arriving) never invalidates an in-flight
// iteration (spec.md §9 "Iteration during mutation").
func (m *Memory) Select(key any) []*Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Registration, 0, len(m.regs))
	for _, r := range m.regs {
		if r.Cancelled() {
			continue
		}
		if r.Selector.Matches(key) {
			out = append(out, r)
		}
	}
	return out
}

func (m *Memory) remove(reg *Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.regs {
		if r == reg {
			m.regs = append(m.regs[:i], m.regs[i+1:]...)
			return
		}
	}
}
