// Package breaker provides lock-free circuit breakers that guard a
// caller-owned resource against overload.
//
// Two implementations share the [Breaker] contract:
//   - [Timed] counts events inside rolling check intervals and flips
//     between Closed and Open based on per-state thresholds.
//   - [Memory] compares a plain running byte total against one fixed
//     threshold, with no time dimension.
//
// Every check method follows a single boolean convention: true means the
// breaker currently allows operation. Callers that prefer errors over
// booleans can wrap any Breaker in [Erroring].
package breaker

import (
	"errors"
	"fmt"
)

// State represents the current circuit breaker state.
type State int32

const (
	// Closed is the normal operating state: operations are permitted.
	Closed State = iota

	// Open is the tripped state: operations are blocked.
	Open
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return fmt.Sprintf("unknown state %d", int32(s))
	}
}

// Opposite returns the other state. There is no terminal state; a breaker
// only ever cycles between Closed and Open.
func (s State) Opposite() State {
	if s == Closed {
		return Open
	}
	return Closed
}

// StateChangeFunc is called after a breaker transitions between states.
type StateChangeFunc func(from, to State)

// CombineStateChange fans a state change out to multiple listeners. Nil
// entries are skipped.
func CombineStateChange(fns ...StateChangeFunc) StateChangeFunc {
	return func(from, to State) {
		for _, fn := range fns {
			if fn != nil {
				fn(from, to)
			}
		}
	}
}

// Breaker is the contract shared by all circuit breaker variants. All
// methods are safe for concurrent use and none of them blocks: every call
// completes with a clock read and a bounded amount of local compute.
type Breaker interface {
	// IsOpen reports whether the breaker currently blocks operations.
	IsOpen() bool

	// IsClosed reports whether the breaker currently permits operations.
	// It is the strict complement of IsOpen.
	IsClosed() bool

	// Open forces the breaker into the Open state.
	Open()

	// Close forces the breaker into the Closed state.
	Close()

	// CheckState reports whether the breaker allows operation without
	// recording new load. Time-based breakers still participate in
	// window rollover, so a passive poll can close an open breaker.
	CheckState() bool

	// IncrementAndCheckState records delta units of load and reports
	// whether the breaker allows operation after accounting for them.
	IncrementAndCheckState(delta int64) bool
}

// ErrOpen is returned by [Erroring] when the circuit is open. It is a
// flow-control signal rather than a failure: the guarded operation was
// never attempted. Callers decide whether to back off or fail fast.
var ErrOpen = errors.New("circuit breaker open")

// IsOpen reports whether err signals an open circuit.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}

// Erroring adapts a Breaker to an error-returning surface. The adapter is
// all-or-nothing: both check methods return ErrOpen when blocked, so the
// two conventions never mix on one surface.
type Erroring struct {
	B Breaker
}

// CheckState returns ErrOpen when the breaker blocks operation.
func (e Erroring) CheckState() error {
	if !e.B.CheckState() {
		return ErrOpen
	}
	return nil
}

// IncrementAndCheckState records delta units of load and returns ErrOpen
// when the breaker blocks operation after accounting for them.
func (e Erroring) IncrementAndCheckState(delta int64) error {
	if !e.B.IncrementAndCheckState(delta) {
		return ErrOpen
	}
	return nil
}
