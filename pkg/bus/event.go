// Package bus implements the key-indexed publish/subscribe gateway: events
// carrying an arbitrary key and payload are routed to every consumer whose
// Selector matches that key, through a pluggable Filter/ConsumerInvoker
// chain, with reply-to and per-dispatch error isolation.
package bus

import "fmt"

// Headers is a string-keyed multimap carried alongside an event's payload,
// augmented by a matched Selector's HeaderResolver before a consumer runs.
type Headers map[string][]string

// Add appends value under key.
func (h Headers) Add(key, value string) {
	h[key] = append(h[key], value)
}

// Get returns the first value for key, or "" if absent.
func (h Headers) Get(key string) string {
	vs := h[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value recorded for key.
func (h Headers) Values(key string) []string {
	return h[key]
}

// Event is the unit of dispatch: a key, an arbitrary payload, optional
// headers, and an optional reply address. A zero Event is valid and
// represents a Void-typed notification.
//
// The source's ReplyToEvent is folded into this single struct rather than
// modeled as a distinct subtype: Go has no inheritance, and threading a
// second wrapper type through Dispatcher/Router/ConsumerInvoker would mean
// type-switching on every hop. The replyToObservable field is unexported
// and nil unless set through NewReplyToEvent, which preserves the source's
// documented invariant (a ReplyToEvent's replyToObservable is never nil) at
// its single construction point.
type Event struct {
	Key           any
	Headers       Headers
	Data          any
	ReplyTo       any
	ErrorConsumer func(error)

	replyToObservable Observable
}

// Wrap returns an Event carrying data as its payload with empty headers.
func Wrap(data any) Event {
	return Event{Data: data, Headers: Headers{}}
}

// NewReplyToEvent returns ev augmented with the Observable that any reply
// produced while handling it must be published on. observable must be
// non-nil.
func NewReplyToEvent(ev Event, observable Observable) (Event, error) {
	if observable == nil {
		return Event{}, fmt.Errorf("bus: ReplyToEvent requires a non-nil replyToObservable")
	}
	if ev.Headers == nil {
		ev.Headers = Headers{}
	}
	ev.replyToObservable = observable
	return ev, nil
}

// IsReplyToEvent reports whether ev carries a reply-to observable.
func (e Event) IsReplyToEvent() bool {
	return e.replyToObservable != nil
}

// ReplyToObservable returns the Observable replies to e should be published
// on. Callers should check IsReplyToEvent first; it returns nil otherwise.
func (e Event) ReplyToObservable() Observable {
	return e.replyToObservable
}
