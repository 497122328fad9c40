// Package parallel implements the fan-out pipeline stage: one upstream
// element stream split into a fixed pool of N sub-stream lanes, each
// backed by its own dispatcher, honoring demand-based backpressure from a
// small Reactive Streams-shaped contract.
package parallel

// Subscriber receives elements, errors, and completion, mirroring the
// Reactive Streams Subscriber contract (spec.md §6 "Parallel Action
// boundary").
type Subscriber interface {
	OnSubscribe(sub Subscription)
	OnNext(v any)
	OnError(err error)
	OnComplete()
}

// Subscription lets a Subscriber pull demand from, or cancel, its
// Publisher.
type Subscription interface {
	Request(n int64)
	Cancel()
}

// Publisher produces elements to exactly one Subscriber.
type Publisher interface {
	Subscribe(sub Subscriber)
}

// Dispatcher schedules consumer(payload) on some execution context,
// invoking errorHandler(err) on failure (spec.md §6, C1). Both
// internal/dispatch.Sync and internal/dispatch.Pool satisfy it.
type Dispatcher interface {
	Dispatch(payload any, consumer func(any), errorHandler func(error))
}

// FuncSubscriber adapts plain functions to the Subscriber interface,
// useful for tests and simple lane consumers that don't need a full type.
type FuncSubscriber struct {
	OnSubscribeFunc func(Subscription)
	OnNextFunc      func(any)
	OnErrorFunc     func(error)
	OnCompleteFunc  func()
}

func (f *FuncSubscriber) OnSubscribe(s Subscription) {
	if f.OnSubscribeFunc != nil {
		f.OnSubscribeFunc(s)
	}
}

func (f *FuncSubscriber) OnNext(v any) {
	if f.OnNextFunc != nil {
		f.OnNextFunc(v)
	}
}

func (f *FuncSubscriber) OnError(err error) {
	if f.OnErrorFunc != nil {
		f.OnErrorFunc(err)
	}
}

func (f *FuncSubscriber) OnComplete() {
	if f.OnCompleteFunc != nil {
		f.OnCompleteFunc()
	}
}
