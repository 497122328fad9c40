package parallel

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Lane is the sub-stream publisher (spec.md C8): one of N fan-out
// sub-streams, each wrapping its own Dispatcher and exposing the
// Publisher/Subscription contract to a single downstream Subscriber.
type Lane struct {
	index   int
	parent  *Action
	dispatcher Dispatcher

	mu         sync.Mutex
	subscriber Subscriber
	sem        *semaphore.Weighted
	capacity   int64

	demand    int64
	cancelled atomic.Bool
}

func newLane(index int, parent *Action, d Dispatcher) *Lane {
	return &Lane{
		index:      index,
		parent:     parent,
		dispatcher: d,
		sem:        semaphore.NewWeighted(1),
		capacity:   1,
	}
}

// setCapacity governs this lane's in-flight element budget via a weighted
// semaphore sized to c (spec.md §4.6 capacity policy). It is intended to be
// called once, before the lane starts receiving elements; replacing the
// semaphore while acquisitions are outstanding would lose their accounting.
func (l *Lane) setCapacity(c int64) {
	if c < 1 {
		c = 1
	}
	l.mu.Lock()
	l.capacity = c
	l.sem = semaphore.NewWeighted(c)
	l.mu.Unlock()
}

func (l *Lane) currentSubscriber() Subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subscriber
}

func (l *Lane) hasSubscriber() bool {
	return l.currentSubscriber() != nil
}

func (l *Lane) tryAcquireCapacity() bool {
	l.mu.Lock()
	sem := l.sem
	l.mu.Unlock()
	return sem.TryAcquire(1)
}

func (l *Lane) releaseCapacity() {
	l.mu.Lock()
	sem := l.sem
	l.mu.Unlock()
	sem.Release(1)
}

// Subscribe implements Publisher: it records sub as this lane's one
// downstream subscriber and hands back the lane itself as the Subscription.
func (l *Lane) Subscribe(sub Subscriber) {
	l.mu.Lock()
	l.subscriber = sub
	l.mu.Unlock()
	sub.OnSubscribe(l)
}

// Request implements Subscription: it records additional downstream demand
// and notifies the parent action so it can pull more from upstream to
// refill this lane (spec.md §4.7).
func (l *Lane) Request(n int64) {
	if n <= 0 {
		return
	}
	atomic.AddInt64(&l.demand, n)
	l.parent.onRequest(l.index, n)
}

// Cancel implements Subscription: it marks the lane cancelled, then clears
// the parent's lane slot — the only way a lane becomes empty (spec.md
// §4.7). Cancellation is permanent and idempotent.
func (l *Lane) Cancel() {
	if l.cancelled.Swap(true) {
		return
	}
	l.parent.clearLane(l.index)
}

// broadcastNext dispatches ev through this lane's own dispatcher. A
// panicking subscriber is recovered by the dispatcher and redirected to
// broadcastError on the same lane. The capacity permit DoNext acquired for
// ev is released exactly once, whether the delivery succeeds, panics, or is
// rejected by the dispatcher.
func (l *Lane) broadcastNext(ev any) {
	var released atomic.Bool
	release := func() {
		if released.CompareAndSwap(false, true) {
			l.releaseCapacity()
		}
	}
	l.dispatcher.Dispatch(ev, func(p any) {
		defer release()
		if sub := l.currentSubscriber(); sub != nil {
			sub.OnNext(p)
		}
	}, func(err error) {
		release()
		l.broadcastError(err)
	})
}

// broadcastNextBestEffort dispatches ev through this lane's own dispatcher
// without pairing the delivery to a capacity permit. It is used only for the
// backpressure-exhaustion fallback in Action.DoNext (spec.md §4.6 step 2),
// where the lane was chosen precisely because no permit could be acquired
// for it; calling releaseCapacity in that case would release a permit this
// delivery never held, corrupting the semaphore's count.
func (l *Lane) broadcastNextBestEffort(ev any) {
	l.dispatcher.Dispatch(ev, func(p any) {
		if sub := l.currentSubscriber(); sub != nil {
			sub.OnNext(p)
		}
	}, func(err error) {
		l.broadcastError(err)
	})
}

// broadcastComplete is dispatched through the lane's own dispatcher, so on
// an order-preserving dispatcher (such as dispatch.Sync) it runs after every
// element already dispatched on this lane. A multi-worker dispatch.Pool does
// not order its tasks, so there it may run alongside or before them.
func (l *Lane) broadcastComplete() {
	l.dispatcher.Dispatch(nil, func(any) {
		if sub := l.currentSubscriber(); sub != nil {
			sub.OnComplete()
		}
	}, func(error) {})
}

// broadcastError is dispatched through the lane's own dispatcher, with the
// same ordering as broadcastComplete.
func (l *Lane) broadcastError(err error) {
	l.dispatcher.Dispatch(err, func(p any) {
		if sub := l.currentSubscriber(); sub != nil {
			sub.OnError(p.(error))
		}
	}, func(error) {})
}
