package breaker

import "sync/atomic"

// stateCell holds the breaker state behind a single atomic value and is the
// seam where state change listeners are notified. changeState always
// succeeds; only the caller that decided a transition performs the flip, so
// no compare-and-swap failure path is needed here.
type stateCell struct {
	state    atomic.Int32
	onChange StateChangeFunc
}

// current returns the state as a consistent atomic snapshot.
func (c *stateCell) current() State {
	return State(c.state.Load())
}

func (c *stateCell) isOpen() bool {
	return c.current() == Open
}

// changeState atomically sets the state and notifies the listener when the
// value actually changed.
func (c *stateCell) changeState(to State) {
	from := State(c.state.Swap(int32(to)))
	if from != to && c.onChange != nil {
		c.onChange(from, to)
	}
}
