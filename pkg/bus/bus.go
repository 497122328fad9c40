package bus

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"reactorbus/internal/dispatch"
	"reactorbus/pkg/bus/activity"
	"reactorbus/pkg/registry"
)

// Dispatcher is the execution contract the bus schedules work onto
// (spec.md §6, C1). internal/dispatch.Sync and internal/dispatch.Pool both
// satisfy it structurally; any caller can supply another implementation.
type Dispatcher interface {
	Dispatch(payload any, consumer func(any), errorHandler func(error))
}

// Registry is the contract for matching registrations to keys (spec.md §6,
// C2). reactorbus/pkg/registry.Memory is this module's default.
type Registry interface {
	Register(sel registry.Selector, consumer any, opts ...registry.RegOption) *registry.Registration
	Select(key any) []*registry.Registration
}

// Observable is the capability set a holder of a reply-to reference can
// call back into (spec.md §6). Bus implements it; Receive-registered
// consumers publish replies through whichever Observable the inbound
// event names.
type Observable interface {
	Notify(key any, ev Event)
	NotifyKey(key any)
	Send(key any, ev Event, replyTo ...Observable) error
	SendAndReceive(key any, ev Event, reply func(Event))
	RespondsToKey(key any) bool
	On(sel registry.Selector, consumer any, opts ...registry.RegOption) *registry.Registration
	Receive(sel registry.Selector, fn ReplyFunc, opts ...registry.RegOption) *registry.Registration
}

// ReplyFunc computes a reply payload (or error) for an inbound event
// (spec.md §4.4's "receive").
type ReplyFunc func(*Event) (any, error)

// Bus is the key-indexed pub/sub gateway (spec.md C6).
type Bus struct {
	dispatcher Dispatcher
	router     Router
	registry   Registry
	logger     *slog.Logger

	uncaughtErrorHandler func(error)
	activity             *activity.Buffer
	acceptHook           func(activity.Entry)

	idOnce sync.Once
	id     uuid.UUID
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithDispatcher overrides the default synchronous Dispatcher.
func WithDispatcher(d Dispatcher) Option { return func(b *Bus) { b.dispatcher = d } }

// WithRegistry overrides the default in-memory Registry.
func WithRegistry(r Registry) Option { return func(b *Bus) { b.registry = r } }

// WithRouter overrides the default ConsumerFilteringRouter.
func WithRouter(r Router) Option { return func(b *Bus) { b.router = r } }

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option { return func(b *Bus) { b.logger = l } }

// WithUncaughtErrorHandler sets the handler the bus's own error-class
// registration calls for every error dispatchErrorHandler reroutes, whether
// or not another registration also matches that error.
func WithUncaughtErrorHandler(h func(error)) Option {
	return func(b *Bus) { b.uncaughtErrorHandler = h }
}

// WithActivityHistory sizes the bus's recent-dispatch ring buffer.
func WithActivityHistory(n int) Option {
	return func(b *Bus) { b.activity = activity.New(n) }
}

// WithAcceptHook registers a callback invoked with every activity.Entry the
// bus records, in addition to appending it to the activity history — the
// hook a caller wires Prometheus observations (dispatch duration, candidate
// counts) through instead of polling RecentActivity.
func WithAcceptHook(hook func(activity.Entry)) Option {
	return func(b *Bus) { b.acceptHook = hook }
}

// New constructs a Bus. With no options it runs a synchronous dispatcher,
// an in-memory registry, and the default router.
func New(opts ...Option) *Bus {
	b := &Bus{
		dispatcher: dispatch.NewSync(),
		router:     NewConsumerFilteringRouter(),
		registry:   registry.NewMemory(),
		logger:     slog.Default(),
		activity:   activity.New(128),
	}
	for _, o := range opts {
		o(b)
	}
	b.registerUncaughtSink()
	return b
}

// ID returns the bus's identity, a time-based UUID generated lazily on
// first access (spec.md §6 "lazily generated bus identity").
func (b *Bus) ID() uuid.UUID {
	b.idOnce.Do(func() {
		id, err := uuid.NewUUID()
		if err != nil {
			// No MAC address available to seed a time-based UUID; fall back
			// to a random one rather than failing bus construction.
			id = uuid.New()
		}
		b.id = id
	})
	return b.id
}

// registerUncaughtSink wires the bus-wide error consumer spec.md's
// construction section describes. It is an ordinary registration on
// registry.Class[error](), made before any caller's, so it runs first for
// every error dispatchErrorHandler reroutes by type; other matching
// registrations still run after it.
func (b *Bus) registerUncaughtSink() {
	b.registry.Register(registry.Class[error](), func(ev *Event) {
		err, _ := ev.Data.(error)
		if b.uncaughtErrorHandler != nil {
			b.uncaughtErrorHandler(err)
			return
		}
		b.logger.Error("bus: uncaught error", "error", err)
	})
}

// Notify submits ev, keyed by key, for dispatch. It returns once the
// dispatcher has taken the task: with the default synchronous dispatcher
// that is after delivery, with dispatch.Pool it may be before (spec.md §5).
func (b *Bus) Notify(key any, ev Event) {
	ev.Key = key
	evCopy := ev
	b.dispatcher.Dispatch(&evCopy, func(p any) {
		b.accept(p.(*Event))
	}, b.dispatchErrorHandler)
}

// NotifyKey dispatches a Void-typed event (no payload) for key.
func (b *Bus) NotifyKey(key any) {
	b.Notify(key, Event{})
}

// NotifySupplier evaluates supplier and dispatches its result for key. The
// supplier runs on the calling goroutine, before scheduling.
func (b *Bus) NotifySupplier(key any, supplier func() Event) {
	b.Notify(key, supplier())
}

// accept routes ev by its own key against the current registry snapshot,
// recording the dispatch to the bus's activity history (spec.md §4.4
// "accept"). When a consumer fails and the event has no ErrorConsumer of
// its own, Route panics once routing finishes; that panic is recovered by
// the Dispatcher and handed to dispatchErrorHandler, so this method
// deliberately does not shield callers from it, and no activity entry is
// recorded for that dispatch. When the
// caller did set ev.ErrorConsumer, it is wrapped so a failure still marks
// the activity entry without changing the caller's handling.
func (b *Bus) accept(ev *Event) {
	start := time.Now()
	candidates := b.registry.Select(ev.Key)

	failed := false
	if ev.ErrorConsumer != nil {
		orig := ev.ErrorConsumer
		ev.ErrorConsumer = func(err error) {
			failed = true
			orig(err)
		}
	}

	b.router.Route(ev.Key, ev, candidates, nil, nil)

	entry := activity.Entry{
		Key:        fmt.Sprint(ev.Key),
		Candidates: len(candidates),
		Failed:     failed,
		Duration:   time.Since(start),
		At:         start,
	}
	b.activity.Record(entry)
	if b.acceptHook != nil {
		b.acceptHook(entry)
	}
}

// dispatchErrorHandler is the bus's default error funnel: it reroutes a
// failure keyed by its own runtime type, so a registration made via
// On(registry.Class[SomeErrorType](), ...) receives it alongside the
// bus-wide uncaught sink (spec.md §4.4 "Default dispatchErrorHandler").
func (b *Bus) dispatchErrorHandler(err error) {
	key := ErrorKey(err)
	ev := Wrap(err)
	candidates := b.registry.Select(key)
	b.router.Route(key, &ev, candidates, nil, nil)
}

// ErrorKey returns the dispatch key an error is routed under by the bus's
// default error handling: its own concrete type.
func ErrorKey(err error) any {
	return reflect.TypeOf(err)
}

// Send wraps ev as a reply-capable event — addressed back to replyTo[0] if
// given, otherwise to the bus itself — and notifies key (spec.md §4.4
// "send").
func (b *Bus) Send(key any, ev Event, replyTo ...Observable) error {
	target := Observable(b)
	if len(replyTo) > 0 && replyTo[0] != nil {
		target = replyTo[0]
	}
	wrapped, err := NewReplyToEvent(ev, target)
	if err != nil {
		return err
	}
	b.Notify(key, wrapped)
	return nil
}

// SendAndReceive dispatches ev for key with a freshly allocated anonymous
// reply address, invoking reply exactly once when the first response
// arrives. The registration backing the reply address is cancelled after
// that single delivery (spec.md §4.4 "sendAndReceive").
func (b *Bus) SendAndReceive(key any, ev Event, reply func(Event)) {
	sel := registry.Anonymous()
	b.registry.Register(sel, func(e *Event) {
		reply(*e)
	}, registry.CancelAfterUse())

	ev.ReplyTo = sel
	b.Notify(key, ev)
}

// RespondsToKey reports whether at least one non-cancelled registration
// currently matches key.
func (b *Bus) RespondsToKey(key any) bool {
	return len(b.registry.Select(key)) > 0
}

// On registers consumer against sel, returning the Registration handle used
// to cancel, pause, or resume it.
func (b *Bus) On(sel registry.Selector, consumer any, opts ...registry.RegOption) *registry.Registration {
	return b.registry.Register(sel, consumer, opts...)
}

// Receive registers fn as a reply-producing consumer (spec.md §4.4
// "receive"): fn's result is wrapped and published to the inbound event's
// ReplyTo key, on the inbound event's replyToObservable if it has one,
// otherwise on this bus. An error from fn is published instead to
// ErrorKey(err) on the same target.
func (b *Bus) Receive(sel registry.Selector, fn ReplyFunc, opts ...registry.RegOption) *registry.Registration {
	consumer := func(e *Event) {
		target := b.replyTarget(e)
		result, err := fn(e)
		if err != nil {
			target.Notify(ErrorKey(err), Wrap(err))
			return
		}
		target.Notify(e.ReplyTo, toEvent(result))
	}
	return b.registry.Register(sel, consumer, opts...)
}

func (b *Bus) replyTarget(e *Event) Observable {
	if e.IsReplyToEvent() {
		return e.ReplyToObservable()
	}
	return b
}

func toEvent(v any) Event {
	if ev, ok := v.(Event); ok {
		return ev
	}
	return Wrap(v)
}

// Prepare snapshots the registrations currently matching key and returns a
// consumer that dispatches every future event to exactly that frozen
// snapshot, ignoring registrations added afterward (spec.md §9 "Prepare
// snapshot" — documented as a surprise, not a bug). See PrepareLive for a
// consumer that re-selects on every delivery instead.
func (b *Bus) Prepare(key any) func(Event) {
	snapshot := b.registry.Select(key)
	return func(ev Event) {
		b.dispatchSnapshot(key, snapshot, ev)
	}
}

// PrepareLive returns a consumer that re-selects the registry on every
// delivery rather than freezing the candidate list at call time. It is a
// supplement beyond spec.md's literal text, offered alongside Prepare for
// callers who want live membership instead of a frozen snapshot.
func (b *Bus) PrepareLive(key any) func(Event) {
	return func(ev Event) {
		b.dispatchSnapshot(key, b.registry.Select(key), ev)
	}
}

func (b *Bus) dispatchSnapshot(key any, snapshot []*registry.Registration, ev Event) {
	for _, reg := range snapshot {
		evCopy := ev
		evCopy.Key = key
		b.dispatcher.Dispatch(&evCopy, func(p any) {
			b.router.Route(key, p.(*Event), []*registry.Registration{reg}, nil, nil)
		}, b.dispatchErrorHandler)
	}
}

// BatchNotify returns a consumer that dispatches one task carrying an
// entire batch of events, each routed to key's current matches. Per
// spec.md §9 Open Question #1, this module treats the source's
// class-assignability re-check as a bug and routes every event in the
// batch to every matching consumer without re-filtering by payload type.
// completion, if given, runs once after the whole batch has been routed.
func (b *Bus) BatchNotify(key any, completion ...func(Event)) func([]Event) {
	var done func(Event)
	if len(completion) > 0 {
		done = completion[0]
	}

	return func(batch []Event) {
		events := append([]Event(nil), batch...)
		b.dispatcher.Dispatch(events, func(p any) {
			for _, ev := range p.([]Event) {
				evCopy := ev
				evCopy.Key = key
				candidates := b.registry.Select(key)
				b.router.Route(key, &evCopy, candidates, nil, nil)
			}
			if done != nil {
				done(Event{Key: key})
			}
		}, b.dispatchErrorHandler)
	}
}

// Schedule dispatches an opaque task: consumer(data) runs on the bus's
// dispatcher, outside of key-based routing (spec.md §4.4 "schedule").
func (b *Bus) Schedule(consumer func(any), data any) {
	b.dispatcher.Dispatch(data, consumer, b.dispatchErrorHandler)
}

// RecentActivity returns the n most recently recorded dispatch entries.
func (b *Bus) RecentActivity(n int) []activity.Entry {
	return b.activity.GetLast(n)
}
