package gofusesquirrel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Keksclan/goFuseSquirrel/breaker"
)

func TestChainComposesLeftToRight(t *testing.T) {
	var log []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context) error {
				log = append(log, name)
				return next(ctx)
			}
		}
	}

	h := Wrap(func(ctx context.Context) error {
		log = append(log, "handler")
		return nil
	}, tag("A"), tag("B"))

	if err := h(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"A", "B", "handler"}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestWrapWithoutMiddlewareReturnsHandler(t *testing.T) {
	called := false
	h := Wrap(func(ctx context.Context) error {
		called = true
		return nil
	})
	if err := h(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}
}

func TestBreachBlocksWhenOpen(t *testing.T) {
	b := breaker.NewTimedSymmetric(100, time.Hour)
	calls := 0
	h := Wrap(func(ctx context.Context) error {
		calls++
		return nil
	}, Breach(b))

	if err := h(t.Context()); err != nil {
		t.Fatalf("closed breaker rejected call: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	b.Open()
	err := h(t.Context())
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if !breaker.IsOpen(err) {
		t.Fatal("IsOpen(err) = false for ErrOpen")
	}
	if calls != 1 {
		t.Fatalf("handler ran while breaker open, calls = %d", calls)
	}
}

func TestBreachCountsLoad(t *testing.T) {
	b := breaker.NewTimedSymmetric(2, time.Hour)
	h := Wrap(func(ctx context.Context) error { return nil }, Breach(b))

	for i := 0; i < 2; i++ {
		if err := h(t.Context()); err != nil {
			t.Fatalf("call %d rejected: %v", i, err)
		}
	}
	// Third call pushes the count past the threshold and trips the breaker.
	if err := h(t.Context()); !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected ErrOpen on tripping call, got %v", err)
	}
	if !b.IsOpen() {
		t.Fatal("breaker should be open after threshold exceeded")
	}
}
