package parallel

import (
	"log/slog"
	"sync"
)

// DefaultReservedSlots is the per-lane guard count subtracted from
// aggregate capacity before computing the master's own effective capacity
// (spec.md §4.6, GLOSSARY "RESERVED_SLOTS").
const DefaultReservedSlots = 32

// Action is the fan-out core (spec.md C7): it splits a single logical
// element stream, fed by DoNext/DoError/DoComplete, into N lanes, each a
// Publisher a downstream can Subscribe to independently.
type Action struct {
	mu    sync.Mutex
	lanes []*Lane

	roundRobinIndex int
	n               int
	reservedSlots   int64
	laneCapacity    int64
	masterCapacity  int64

	downstreamSub Subscriber
	cursor        int

	onRequestHook func(laneIndex int, n int64)
	laneCountHook func(liveLanes int)
	logger        *slog.Logger
}

// Option configures an Action at construction time.
type Option func(*Action)

// WithReservedSlots overrides DefaultReservedSlots.
func WithReservedSlots(n int64) Option {
	return func(a *Action) { a.reservedSlots = n }
}

// WithUpstreamRequestHook registers a callback invoked whenever a lane's
// downstream Subscription.Request(n) fires, so a caller feeding DoNext from
// a pull-based upstream can refill it (spec.md §4.7 "notify the parent
// action onRequest(r)").
func WithUpstreamRequestHook(hook func(laneIndex int, n int64)) Option {
	return func(a *Action) { a.onRequestHook = hook }
}

// WithLogger overrides the default slog.Default() logger used for the
// capacity policy's diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Action) { a.logger = l }
}

// WithLaneCountHook registers a callback invoked with the number of lanes
// still live whenever a lane cancels and clears its slot, so a caller can
// mirror lane mortality into an external gauge instead of polling LaneCount
// against nil Lane() results.
func WithLaneCountHook(hook func(liveLanes int)) Option {
	return func(a *Action) { a.laneCountHook = hook }
}

// NewAction constructs an Action with n lanes, each backed by a dispatcher
// obtained from newDispatcher (spec.md §5: "each lane uses its own,
// typically distinct, obtained from a supplier"). Lanes are created eagerly
// at construction (spec.md §5 "Resource lifecycle").
func NewAction(n int, newDispatcher func() Dispatcher, opts ...Option) *Action {
	a := &Action{
		n:             n,
		lanes:         make([]*Lane, n),
		reservedSlots: DefaultReservedSlots,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	for i := 0; i < n; i++ {
		a.lanes[i] = newLane(i, a, newDispatcher())
	}
	return a
}

// LaneCount returns N.
func (a *Action) LaneCount() int { return a.n }

// Lane returns lane i's Publisher, so a caller can Subscribe to it directly
// without going through the master's own lanes-as-elements subscription.
func (a *Action) Lane(i int) Publisher {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lanes[i] == nil {
		return nil
	}
	return a.lanes[i]
}

// SetCapacity applies the capacity policy of spec.md §4.6 for an aggregate
// capacity e, computing and propagating a per-lane capacity to every lane.
// It is intended to be called once, before the action starts receiving
// elements.
func (a *Action) SetCapacity(e int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	g := int64(a.n) * a.reservedSlots
	master := e
	if e < g {
		a.logger.Warn("parallel: aggregate capacity below reservation guard; keeping master capacity at requested value",
			"capacity", e, "guard", g)
	} else {
		master = e - g + a.reservedSlots
	}
	a.masterCapacity = master

	c := e / int64(a.n)
	if c == 0 {
		c = e
		a.logger.Warn("parallel: per-lane capacity rounds to zero; lanes share the full budget",
			"capacity", e, "lanes", a.n)
	}
	a.laneCapacity = c

	for _, lane := range a.lanes {
		if lane != nil {
			lane.setCapacity(c)
		}
	}
}

// LaneCapacity returns the per-lane capacity currently in effect.
func (a *Action) LaneCapacity() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.laneCapacity
}

// MasterCapacity returns the master's own effective capacity as computed by
// the last SetCapacity call.
func (a *Action) MasterCapacity() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.masterCapacity
}

// DoNext implements element dispatch (spec.md §4.6): it probes at most N
// lanes starting at roundRobinIndex, delivering to the first lane with a
// live subscriber and spare capacity. If no lane has spare capacity but at
// least one lane is live, it falls back to the last lane seen — best-effort
// delivery under backpressure exhaustion rather than a silent drop. If
// every lane slot is empty, ev is dropped silently.
//
// roundRobinIndex advances past whichever index was probed last, including
// a successful delivery — spec.md's literal wording advances it only on a
// skipped probe, which would pin every delivery to the first lane with
// capacity and defeat the round-robin fairness property (§8 property 4).
// Advancing unconditionally is this module's resolution of that tension.
func (a *Action) DoNext(ev any) {
	a.mu.Lock()
	n := a.n
	idx := a.roundRobinIndex
	var lastExisting, target *Lane

	for i := 0; i < n; i++ {
		lane := a.lanes[idx]
		next := (idx + 1) % n
		if lane != nil {
			lastExisting = lane
			if lane.hasSubscriber() && lane.tryAcquireCapacity() {
				target = lane
				idx = next
				break
			}
		}
		idx = next
	}
	a.roundRobinIndex = idx
	a.mu.Unlock()

	if target != nil {
		target.broadcastNext(ev)
		return
	}
	if lastExisting != nil {
		lastExisting.broadcastNextBestEffort(ev)
		return
	}
	a.logger.Debug("parallel: dropping element, no lanes live", "event", ev)
}

// DoError propagates an upstream failure by broadcasting it to every live
// lane (spec.md §4.6 "Termination").
func (a *Action) DoError(err error) {
	for _, lane := range a.snapshotLanes() {
		lane.broadcastError(err)
	}
}

// DoComplete propagates upstream completion by broadcasting it to every
// live lane.
func (a *Action) DoComplete() {
	for _, lane := range a.snapshotLanes() {
		lane.broadcastComplete()
	}
}

func (a *Action) snapshotLanes() []*Lane {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Lane, 0, a.n)
	for _, lane := range a.lanes {
		if lane != nil {
			out = append(out, lane)
		}
	}
	return out
}

func (a *Action) clearLane(index int) {
	a.mu.Lock()
	a.lanes[index] = nil
	live := 0
	for _, lane := range a.lanes {
		if lane != nil {
			live++
		}
	}
	hook := a.laneCountHook
	a.mu.Unlock()

	if hook != nil {
		hook(live)
	}
}

func (a *Action) onRequest(laneIndex int, n int64) {
	if a.onRequestHook != nil {
		a.onRequestHook(laneIndex, n)
	}
}

// Subscribe implements Publisher for the master itself: spec.md §4.6
// "Subscription to the master" emits the action's lanes as elements, one
// per Request(r) credit, to a single downstream subscriber.
func (a *Action) Subscribe(sub Subscriber) {
	a.mu.Lock()
	a.downstreamSub = sub
	a.mu.Unlock()
	sub.OnSubscribe(&masterSubscription{action: a})
}

type masterSubscription struct {
	action *Action
}

// Request implements Subscription: it emits up to r not-yet-emitted lanes
// as next-elements, completing the master's downstream once every lane has
// been emitted.
func (m *masterSubscription) Request(r int64) {
	a := m.action
	if r <= 0 {
		return
	}

	a.mu.Lock()
	start := a.cursor
	end := start + int(r)
	if end > a.n {
		end = a.n
	}
	toEmit := append([]*Lane(nil), a.lanes[start:end]...)
	a.cursor = end
	done := a.cursor >= a.n
	sub := a.downstreamSub
	a.mu.Unlock()

	if sub == nil {
		return
	}
	for _, lane := range toEmit {
		sub.OnNext(lane)
	}
	if done {
		sub.OnComplete()
	}
}

// Cancel implements Subscription for the master's own output. It does not
// retract lanes already emitted downstream; a caller that wants to stop
// receiving elements on a given lane should cancel that lane's own
// Subscription instead.
func (m *masterSubscription) Cancel() {}
