package bus

import "reactorbus/pkg/registry"

// Filter narrows a candidate registration list for one key, preserving
// order. It runs after Registry.Select and before invocation.
type Filter interface {
	Filter(candidates []*registry.Registration, key any) []*registry.Registration
}

// PassThrough is the default Filter: every candidate survives unchanged.
// Other strategies (first-match-only, round-robin selection among
// candidates, random sampling) are pluggable external collaborators per
// spec.md §1/§4.2 and are intentionally not shipped here.
type PassThrough struct{}

// Filter implements Filter.
func (PassThrough) Filter(candidates []*registry.Registration, _ any) []*registry.Registration {
	return candidates
}
