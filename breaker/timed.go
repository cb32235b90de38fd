package breaker

import (
	"sync/atomic"
	"time"
)

// intervalData is an immutable snapshot of the current check interval: the
// number of events received so far and the interval start time. Snapshots
// are swapped as a whole via compare-and-swap and never mutated in place.
type intervalData struct {
	eventCount int64
	start      time.Time
}

// increment returns a snapshot with the counter raised by delta. A zero
// delta returns the receiver itself so the caller can skip the swap.
func (d *intervalData) increment(delta int64) *intervalData {
	if delta == 0 {
		return d
	}
	return &intervalData{eventCount: d.eventCount + delta, start: d.start}
}

// TimedConfig holds the thresholds and check intervals of a [Timed]
// breaker. All values are fixed at construction.
type TimedConfig struct {
	// OpeningThreshold trips the breaker: when more than this number of
	// events arrives within OpeningInterval while closed, it opens.
	OpeningThreshold int64

	// OpeningInterval is the check interval applied while closed.
	OpeningInterval time.Duration

	// ClosingThreshold closes the breaker again: when a full
	// ClosingInterval elapses with fewer than this number of events
	// while open, the breaker closes.
	ClosingThreshold int64

	// ClosingInterval is the check interval applied while open.
	ClosingInterval time.Duration

	// OnStateChange, when non-nil, is called after every state
	// transition, whether self-triggered by a check call or forced via
	// Open/Close.
	OnStateChange StateChangeFunc
}

// Timed is a circuit breaker that counts events inside rolling check
// intervals. While closed it opens when more than OpeningThreshold events
// arrive within OpeningInterval; while open it closes again once a full
// ClosingInterval has elapsed with fewer than ClosingThreshold events.
// Threshold comparisons are strict: a count exactly equal to a threshold
// never triggers a transition by itself.
//
// Timed is lock-free. The interval snapshot is published via
// compare-and-swap and the whole check is redone from fresh reads whenever
// another goroutine interferes. A state flip and the interval reset that
// follows it are two independent writes, so a concurrent caller can
// briefly observe a state that does not yet match the reset interval.
// This looseness is a deliberate trade against locking, not a defect.
type Timed struct {
	cell stateCell
	data atomic.Pointer[intervalData]
	cfg  TimedConfig

	nowFunc func() time.Time // for testing; defaults to time.Now
}

var _ Breaker = (*Timed)(nil)

// NewTimed creates a Timed breaker from cfg. The breaker starts closed and
// the first check interval begins immediately.
func NewTimed(cfg TimedConfig) *Timed {
	t := &Timed{cfg: cfg, nowFunc: time.Now}
	t.cell.onChange = cfg.OnStateChange
	t.data.Store(&intervalData{start: t.now()})
	return t
}

// NewTimedSymmetric creates a Timed breaker that uses the same threshold
// and interval for both the opening and the closing check.
func NewTimedSymmetric(threshold int64, interval time.Duration) *Timed {
	return NewTimedThresholds(threshold, threshold, interval)
}

// NewTimedThresholds creates a Timed breaker with distinct opening and
// closing thresholds sharing one check interval.
func NewTimedThresholds(openingThreshold, closingThreshold int64, interval time.Duration) *Timed {
	return NewTimed(TimedConfig{
		OpeningThreshold: openingThreshold,
		OpeningInterval:  interval,
		ClosingThreshold: closingThreshold,
		ClosingInterval:  interval,
	})
}

// Config returns a copy of the breaker's configuration.
func (t *Timed) Config() TimedConfig {
	return t.cfg
}

// IsOpen reports whether the breaker currently blocks operations.
func (t *Timed) IsOpen() bool {
	return t.cell.isOpen()
}

// IsClosed reports whether the breaker currently permits operations.
func (t *Timed) IsClosed() bool {
	return !t.cell.isOpen()
}

// Open forces the breaker open and unconditionally starts a fresh check
// interval, discarding any accumulated count.
func (t *Timed) Open() {
	t.cell.changeState(Open)
	t.data.Store(&intervalData{start: t.now()})
}

// Close forces the breaker closed and unconditionally starts a fresh check
// interval, discarding any accumulated count.
func (t *Timed) Close() {
	t.cell.changeState(Closed)
	t.data.Store(&intervalData{start: t.now()})
}

// CheckState performs a passive poll: it advances or rolls the check
// interval without recording load and reports whether the breaker allows
// operation. With zero new load it can still close an open breaker once
// the closing interval has elapsed.
func (t *Timed) CheckState() bool {
	return t.performStateCheck(0)
}

// IncrementAndCheckState records delta units of load and reports whether
// the breaker allows operation after accounting for them.
func (t *Timed) IncrementAndCheckState(delta int64) bool {
	return t.performStateCheck(delta)
}

// performStateCheck is the retry loop at the heart of the breaker: read
// the time, state and interval snapshot, compute the candidate snapshot,
// publish it via compare-and-swap and redo the whole attempt from fresh
// reads when another goroutine got there first. Under low contention the
// first swap wins and the loop is wait-free.
func (t *Timed) performStateCheck(delta int64) bool {
	var (
		current *intervalData
		next    *intervalData
		state   State
	)
	for {
		now := t.now()
		state = t.cell.current()
		current = t.data.Load()
		next = t.nextIntervalData(delta, current, state, now)
		if t.updateIntervalData(current, next) {
			break
		}
	}

	// The flip and the interval reset inside
	// changeStateAndStartNewInterval are not atomic with the swap above;
	// a concurrent caller may interleave between them. Accepted — see
	// the type comment.
	if isStateTransition(state, t.cfg, current, next) {
		state = state.Opposite()
		t.changeStateAndStartNewInterval(state)
	}
	return state != Open
}

// updateIntervalData publishes next in place of current. A false return
// means another goroutine interfered and the whole attempt must be redone;
// nothing of the failed attempt is applied.
func (t *Timed) updateIntervalData(current, next *intervalData) bool {
	return current == next || t.data.CompareAndSwap(current, next)
}

// changeStateAndStartNewInterval flips the state and begins a fresh check
// interval.
func (t *Timed) changeStateAndStartNewInterval(to State) {
	t.cell.changeState(to)
	t.data.Store(&intervalData{start: t.now()})
}

// nextIntervalData computes the candidate snapshot: a fresh interval
// holding only this call's delta when the current one has expired, the
// incremented current snapshot otherwise.
func (t *Timed) nextIntervalData(delta int64, current *intervalData, state State, now time.Time) *intervalData {
	if intervalFinished(state, t.cfg, current, now) {
		return &intervalData{eventCount: delta, start: now}
	}
	return current.increment(delta)
}

func (t *Timed) now() time.Time {
	if t.nowFunc != nil {
		return t.nowFunc()
	}
	return time.Now()
}

// checkInterval returns the interval length applicable in state. An
// unrecognized state is an internal consistency error and panics.
func checkInterval(state State, cfg TimedConfig) time.Duration {
	switch state {
	case Closed:
		return cfg.OpeningInterval
	case Open:
		return cfg.ClosingInterval
	default:
		panic("breaker: invalid state " + state.String())
	}
}

// intervalFinished reports whether the check interval applicable in state
// has expired.
func intervalFinished(state State, cfg TimedConfig, d *intervalData, now time.Time) bool {
	return now.Sub(d.start) > checkInterval(state, cfg)
}

// isStateTransition implements the per-state transition predicates. While
// closed the candidate count must strictly exceed the opening threshold;
// while open the interval must have rolled over with the elapsed
// interval's count strictly below the closing threshold.
func isStateTransition(state State, cfg TimedConfig, current, next *intervalData) bool {
	switch state {
	case Closed:
		return next.eventCount > cfg.OpeningThreshold
	case Open:
		return !next.start.Equal(current.start) && current.eventCount < cfg.ClosingThreshold
	default:
		panic("breaker: invalid state " + state.String())
	}
}
