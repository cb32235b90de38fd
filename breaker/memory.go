package breaker

import "sync/atomic"

// MemoryConfig holds the parameters of a [Memory] breaker.
type MemoryConfig struct {
	// Threshold is the number of bytes that may be used before the
	// breaker opens. A zero threshold trips on the first increment.
	Threshold int64

	// OnStateChange, when non-nil, is called after every state
	// transition.
	OnStateChange StateChangeFunc
}

// Memory is a degenerate circuit breaker without a time dimension: a
// running byte total compared against one fixed threshold. Once the total
// strictly exceeds the threshold the breaker opens and stays open until it
// is closed explicitly; there is no time-based self-closing.
type Memory struct {
	cell      stateCell
	threshold int64
	used      atomic.Int64
}

var _ Breaker = (*Memory)(nil)

// NewMemory creates a Memory breaker from cfg. The breaker starts closed
// with an empty running total.
func NewMemory(cfg MemoryConfig) *Memory {
	m := &Memory{threshold: cfg.Threshold}
	m.cell.onChange = cfg.OnStateChange
	return m
}

// IsOpen reports whether the breaker currently blocks operations.
func (m *Memory) IsOpen() bool {
	return m.cell.isOpen()
}

// IsClosed reports whether the breaker currently permits operations.
func (m *Memory) IsClosed() bool {
	return !m.cell.isOpen()
}

// Open forces the breaker open.
func (m *Memory) Open() {
	m.cell.changeState(Open)
}

// Close forces the breaker closed. The running total is kept: when it
// already exceeds the threshold, the next increment re-opens the breaker.
func (m *Memory) Close() {
	m.cell.changeState(Closed)
}

// Used returns the number of bytes recorded so far.
func (m *Memory) Used() int64 {
	return m.used.Load()
}

// Threshold returns the configured byte threshold.
func (m *Memory) Threshold() int64 {
	return m.threshold
}

// CheckState reports whether the breaker allows operation.
func (m *Memory) CheckState() bool {
	return !m.IsOpen()
}

// IncrementAndCheckState adds delta bytes to the running total and reports
// whether the breaker still allows operation. The comparison is strict:
// reaching the threshold exactly does not trip the breaker.
func (m *Memory) IncrementAndCheckState(delta int64) bool {
	if m.threshold == 0 {
		m.cell.changeState(Open)
	}
	if m.used.Add(delta) > m.threshold {
		m.cell.changeState(Open)
	}
	return m.CheckState()
}
