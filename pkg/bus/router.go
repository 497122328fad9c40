package bus

import (
	"fmt"
	"log/slog"

	"reactorbus/pkg/registry"
)

// Router delivers one event to a list of candidate registrations.
type Router interface {
	Route(key any, ev *Event, candidates []*registry.Registration, completion func(*Event), errorSink func(error))
}

// ConsumerFilteringRouter is the bus's default Router (spec.md §4.1): it
// filters candidates, then invokes survivors in registration order,
// isolating each consumer's failure from the next.
type ConsumerFilteringRouter struct {
	Filter  Filter
	Invoker ConsumerInvoker
	Logger  *slog.Logger
}

// NewConsumerFilteringRouter returns a router wired to PassThrough and
// ArgumentConvertingConsumerInvoker.
func NewConsumerFilteringRouter() *ConsumerFilteringRouter {
	return &ConsumerFilteringRouter{
		Filter:  PassThrough{},
		Invoker: ArgumentConvertingConsumerInvoker{},
		Logger:  slog.Default(),
	}
}

// Route implements Router. For each surviving, non-paused, non-cancelled
// candidate: a matched Selector's HeaderResolver (if any) augments the
// event's headers, the consumer is invoked, and the outcome is applied —
// CancelMe cancels the registration, Failed routes to the event's
// ErrorConsumer or errorSink, Ok honors cancelAfterUse. A consumer's
// failure never aborts routing to its siblings: an unhandled failure (no
// ErrorConsumer, no errorSink) is only re-raised as a panic once every
// candidate and completion has been tried, so the caller's task boundary
// sees it last, not mid-fan-out.
func (r *ConsumerFilteringRouter) Route(key any, ev *Event, candidates []*registry.Registration, completion func(*Event), errorSink func(error)) {
	survivors := r.Filter.Filter(candidates, key)
	var unhandled error

	for _, reg := range survivors {
		if reg == nil || reg.Cancelled() || reg.Paused() {
			continue
		}

		if resolver := reg.Selector.Resolver(); resolver != nil {
			if ev.Headers == nil {
				ev.Headers = Headers{}
			}
			for k, vs := range resolver(key) {
				for _, v := range vs {
					ev.Headers.Add(k, v)
				}
			}
		}

		outcome := r.Invoker.Invoke(reg.Consumer, ev)
		switch outcome.Outcome {
		case CancelMe:
			reg.Cancel()
		case Failed:
			if err := r.handleFailure(ev, outcome.Err, errorSink); err != nil {
				unhandled = err
			}
		case Ok:
			if reg.CancelAfterUse {
				reg.Cancel()
			}
		}
	}

	r.complete(ev, completion, errorSink, &unhandled)

	if unhandled != nil {
		panic(unhandled)
	}
}

// handleFailure routes a consumer's failure to the most specific sink
// available: the event's own ErrorConsumer, else the caller-supplied
// errorSink. If neither is set it logs the failure and returns it so Route
// can re-raise it as a panic once routing finishes, giving the caller's
// task boundary (the Dispatcher) a chance to recover it and hand it to the
// bus's dispatchErrorHandler (spec.md §4.1 step 4).
func (r *ConsumerFilteringRouter) handleFailure(ev *Event, err error, errorSink func(error)) error {
	if ev.ErrorConsumer != nil {
		ev.ErrorConsumer(err)
		return nil
	}
	if errorSink != nil {
		errorSink(err)
		return nil
	}
	r.Logger.Error("bus: consumer failed with no error sink; re-raising after routing completes", "key", ev.Key, "error", err)
	return err
}

func (r *ConsumerFilteringRouter) complete(ev *Event, completion func(*Event), errorSink func(error), unhandled *error) {
	if completion == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			if err := r.handleFailure(ev, fmt.Errorf("bus: completion callback panic: %v", rec), errorSink); err != nil {
				*unhandled = err
			}
		}
	}()
	completion(ev)
}
