package registry

import "reflect"

// HeaderResolver augments an event's headers based on the dispatch key
// that matched a Selector. Attaching one to a Selector defers augmentation
// to the router pipeline (spec.md §9 "Header resolver wrapping") rather
// than wrapping the registered consumer.
type HeaderResolver func(key any) map[string][]string

// Selector is a predicate over dispatch keys (spec.md §3). Concrete
// variants below cover the anonymous and class-matching cases spec.md
// names directly; URI-like matching is explicitly delegated to an external
// selector library out of this module's scope (spec.md §1).
type Selector interface {
	Matches(key any) bool
	Resolver() HeaderResolver
}

type base struct {
	resolver HeaderResolver
}

func (b base) Resolver() HeaderResolver { return b.resolver }

// SelectorOption configures a Selector at construction time.
type SelectorOption func(*base)

// WithHeaderResolver attaches a HeaderResolver to a Selector.
func WithHeaderResolver(r HeaderResolver) SelectorOption {
	return func(b *base) { b.resolver = r }
}

// anonymousSelector matches only its own identity. sendAndReceive uses one
// to allocate a private, single-use reply channel nothing else can address
// (spec.md §4.4).
type anonymousSelector struct {
	base
}

// Anonymous returns a Selector with unique identity: it matches only a key
// that is this exact Selector value.
func Anonymous(opts ...SelectorOption) Selector {
	s := &anonymousSelector{}
	for _, o := range opts {
		o(&s.base)
	}
	return s
}

func (a *anonymousSelector) Matches(key any) bool {
	return key == Selector(a)
}

// classSelector matches a key iff the key (or, when the key itself is a
// reflect.Type acting as a class reference — as bus.ErrorKey produces — the
// referenced type) is assignable to T.
type classSelector struct {
	base
	typ reflect.Type
}

// Class returns a Selector matching any key whose dynamic type is
// assignable to T (spec.md §3 "class" selector variant). T is typically an
// interface (to match by capability) or a concrete struct/string type.
func Class[T any](opts ...SelectorOption) Selector {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	s := &classSelector{typ: typ}
	for _, o := range opts {
		o(&s.base)
	}
	return s
}

func (c *classSelector) Matches(key any) bool {
	if key == nil {
		return false
	}

	var kt reflect.Type
	if t, ok := key.(reflect.Type); ok {
		// The key is itself a class reference (spec.md's dispatchErrorHandler
		// reroutes errors keyed by typeOf(throwable), a Type, not a value).
		kt = t
	} else {
		kt = reflect.TypeOf(key)
	}

	if c.typ.Kind() == reflect.Interface {
		return kt == c.typ || kt.Implements(c.typ)
	}
	return kt == c.typ || kt.AssignableTo(c.typ)
}

// exactSelector matches a key by equality. Exposed for callers that want a
// plain topic/address style selector rather than class-based matching.
type exactSelector struct {
	base
	key any
}

// Exactly returns a Selector matching only keys equal to key.
func Exactly(key any, opts ...SelectorOption) Selector {
	s := &exactSelector{key: key}
	for _, o := range opts {
		o(&s.base)
	}
	return s
}

func (e *exactSelector) Matches(key any) bool {
	return key == e.key
}
