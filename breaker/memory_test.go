package breaker

import "testing"

func TestMemoryUnderThreshold(t *testing.T) {
	m := NewMemory(MemoryConfig{Threshold: 10})

	if !m.IncrementAndCheckState(9) {
		t.Fatal("expected 9 of 10 bytes to be allowed")
	}
	if !m.IncrementAndCheckState(1) {
		t.Fatal("reaching the threshold exactly must not trip the breaker")
	}
	if m.IsOpen() {
		t.Fatal("expected breaker to be closed at used == threshold")
	}
}

func TestMemoryTripsOverThreshold(t *testing.T) {
	m := NewMemory(MemoryConfig{Threshold: 10})

	m.IncrementAndCheckState(9)
	if m.IncrementAndCheckState(2) {
		t.Fatal("expected 11 of 10 bytes to be blocked")
	}
	if !m.IsOpen() {
		t.Fatal("expected breaker to be open")
	}
	if got := m.Used(); got != 11 {
		t.Fatalf("expected used=11, got %d", got)
	}
}

func TestMemoryZeroThresholdTripsImmediately(t *testing.T) {
	m := NewMemory(MemoryConfig{Threshold: 0})

	if m.IncrementAndCheckState(1) {
		t.Fatal("expected a zero-threshold breaker to trip on the first increment")
	}
}

func TestMemoryHasNoSelfClosing(t *testing.T) {
	m := NewMemory(MemoryConfig{Threshold: 5})

	m.IncrementAndCheckState(6)
	for range 10 {
		if m.CheckState() {
			t.Fatal("expected breaker to stay open under passive polling")
		}
	}
}

func TestMemoryCloseKeepsTotal(t *testing.T) {
	m := NewMemory(MemoryConfig{Threshold: 5})

	m.IncrementAndCheckState(6)
	m.Close()
	if !m.CheckState() {
		t.Fatal("expected breaker to allow after forced Close()")
	}
	// The running total survives Close(); the next increment re-trips.
	if m.IncrementAndCheckState(1) {
		t.Fatal("expected breaker to re-open, total still above threshold")
	}
}

func TestMemoryStateChangeListener(t *testing.T) {
	var fired int
	m := NewMemory(MemoryConfig{
		Threshold: 5,
		OnStateChange: func(from, to State) {
			fired++
		},
	})

	m.IncrementAndCheckState(6) // trip
	m.IncrementAndCheckState(1) // already open; no second notification
	if fired != 1 {
		t.Fatalf("expected one notification, got %d", fired)
	}
}
