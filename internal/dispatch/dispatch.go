// Package dispatch provides the execution substrate that the bus and the
// parallel fan-out action schedule work onto.
//
// The core (pkg/bus, pkg/parallel) treats Dispatcher as an external
// collaborator per the runtime's design: neither component cares how a
// task actually runs, only that it eventually runs and that failures are
// reported back through errorHandler instead of escaping onto whatever
// goroutine called Dispatch. This package supplies the two default
// implementations every caller needs: a synchronous one for tests and
// simple embeddings, and a goroutine-pool one for production use.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dispatcher schedules consumer(payload) on some execution context,
// invoking errorHandler(err) if the consumer panics or otherwise fails.
// Implementations must be safe to call from any goroutine.
type Dispatcher interface {
	// Dispatch schedules consumer to run with payload. Sync runs it inline
	// before returning; Pool hands it to a worker and returns without
	// waiting for it, blocking only while its task queue is full.
	Dispatch(payload any, consumer func(any), errorHandler func(error))
}

// Sync runs every task on the calling goroutine. It is the bus's default
// when no Dispatcher is supplied, matching the
// "synchronous dispatcher" default called out in the bus's design.
type Sync struct{}

// NewSync returns a Dispatcher that executes inline.
func NewSync() Sync { return Sync{} }

// Dispatch implements Dispatcher.
func (Sync) Dispatch(payload any, consumer func(any), errorHandler func(error)) {
	runGuarded(payload, consumer, errorHandler)
}

// Pool is a fixed-size goroutine-pool Dispatcher. Tasks are queued on a
// buffered channel and drained by workers managed through an errgroup, the
// same fan-out/wait idiom the controller this module was adapted from used
// for concurrent Kubernetes fetches.
type Pool struct {
	tasks  chan poolTask
	group  *errgroup.Group
	cancel context.CancelFunc
	closed chan struct{}

	closeOnce sync.Once
}

type poolTask struct {
	payload      any
	consumer     func(any)
	errorHandler func(error)
}

// NewPool starts a Pool with the given worker count and task queue depth.
// Both must be positive.
func NewPool(workers, queueDepth int) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("dispatch: workers must be >= 1, got %d", workers)
	}
	if queueDepth < 1 {
		return nil, fmt.Errorf("dispatch: queueDepth must be >= 1, got %d", queueDepth)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gCtx := errgroup.WithContext(ctx)

	p := &Pool{
		tasks:  make(chan poolTask, queueDepth),
		group:  group,
		cancel: cancel,
		closed: make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			p.worker(gCtx)
			return nil
		})
	}

	return p, nil
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			runGuarded(t.payload, t.consumer, t.errorHandler)
		}
	}
}

// Dispatch implements Dispatcher. If the pool has been closed, the task is
// not run and errorHandler is invoked synchronously with an error
// describing the shutdown.
func (p *Pool) Dispatch(payload any, consumer func(any), errorHandler func(error)) {
	select {
	case <-p.closed:
		if errorHandler != nil {
			errorHandler(fmt.Errorf("dispatch: pool closed"))
		}
		return
	default:
	}

	select {
	case p.tasks <- poolTask{payload: payload, consumer: consumer, errorHandler: errorHandler}:
	default:
		// Queue full: fall back to a blocking send so Dispatch never
		// silently drops work, but still respect shutdown.
		select {
		case p.tasks <- poolTask{payload: payload, consumer: consumer, errorHandler: errorHandler}:
		case <-p.closedSignal():
			if errorHandler != nil {
				errorHandler(fmt.Errorf("dispatch: pool closed"))
			}
		}
	}
}

// closedSignal returns the channel Close closes; used only to unblock a
// pending Dispatch during shutdown.
func (p *Pool) closedSignal() <-chan struct{} {
	// Workers stop on the errgroup context, which Close cancels through the
	// stored cancel func; callers blocked on a full queue are unblocked by
	// Close closing this channel.
	return p.closed
}

// Close stops accepting new tasks, cancels in-flight workers' context, and
// waits for all workers to exit.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		p.cancel()
		close(p.tasks)
		err = p.group.Wait()
	})
	return err
}

// runGuarded invokes consumer(payload), recovering a panic into
// errorHandler so a single failing consumer never crashes the dispatcher.
func runGuarded(payload any, consumer func(any), errorHandler func(error)) {
	defer func() {
		if r := recover(); r != nil {
			if errorHandler != nil {
				if err, ok := r.(error); ok {
					errorHandler(err)
				} else {
					errorHandler(fmt.Errorf("dispatch: panic: %v", r))
				}
			}
		}
	}()
	consumer(payload)
}
