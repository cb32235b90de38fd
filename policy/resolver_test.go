package policy

import (
	"testing"
	"time"
)

func mustResolver(t *testing.T, groups ...*GroupBuilder) *Resolver {
	t.Helper()
	r, err := NewResolver(groups...)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func breakerRule() Policy {
	return Policy{Breaker: &BreakerRule{
		OpeningThreshold: 5,
		OpeningInterval:  100 * time.Millisecond,
		ClosingThreshold: 3,
		ClosingInterval:  100 * time.Millisecond,
	}}
}

func TestResolveNoMatch(t *testing.T) {
	r := mustResolver(t, Group("payments").Prefix("/payments.").Policy(breakerRule()))

	if _, _, ok := r.Resolve("/orders.Orders/Create"); ok {
		t.Fatal("expected no match for an unrelated method")
	}
}

func TestResolveExactBeatsPrefix(t *testing.T) {
	r := mustResolver(t,
		Group("all-payments").Prefix("/payments.").Policy(breakerRule()),
		Group("charge").Exact("/payments.Payments/Charge").Policy(breakerRule()),
	)

	name, pol, ok := r.Resolve("/payments.Payments/Charge")
	if !ok || name != "charge" {
		t.Fatalf("expected exact match to win, got %q ok=%v", name, ok)
	}
	if pol == nil || pol.Breaker == nil {
		t.Fatal("expected the group's breaker rule to be attached")
	}
}

func TestResolvePrefixBeatsRegex(t *testing.T) {
	r := mustResolver(t,
		Group("regex").Regex(`/payments\..*`).Policy(breakerRule()),
		Group("prefix").Prefix("/payments.").Policy(breakerRule()),
	)

	name, _, ok := r.Resolve("/payments.Payments/Refund")
	if !ok || name != "prefix" {
		t.Fatalf("expected prefix match to win over regex, got %q ok=%v", name, ok)
	}
}

func TestResolveLongerPrefixWins(t *testing.T) {
	r := mustResolver(t,
		Group("short").Prefix("/payments.").Policy(breakerRule()),
		Group("long").Prefix("/payments.Payments/").Policy(breakerRule()),
	)

	name, _, ok := r.Resolve("/payments.Payments/Charge")
	if !ok || name != "long" {
		t.Fatalf("expected the longer prefix to win, got %q ok=%v", name, ok)
	}
}

func TestResolveStableOrderOnTie(t *testing.T) {
	r := mustResolver(t,
		Group("first").Prefix("/payments.").Policy(breakerRule()),
		Group("second").Prefix("/payments.").Policy(breakerRule()),
	)

	name, _, ok := r.Resolve("/payments.Payments/Charge")
	if !ok || name != "first" {
		t.Fatalf("expected the first-registered group to win a tie, got %q", name)
	}
}

func TestResolveMemoMatchesColdScan(t *testing.T) {
	r := mustResolver(t,
		Group("charge").Exact("/payments.Payments/Charge").Policy(breakerRule()),
	)

	const method = "/payments.Payments/Charge"
	cold := r.resolve(method)

	// Repeated lookups (memoized or not — the memo write is async) must
	// agree with the cold scan.
	for range 10 {
		name, pol, ok := r.Resolve(method)
		if name != cold.group || pol != cold.pol || ok != cold.ok {
			t.Fatalf("memoized resolution diverged: got %q %p %v, want %q %p %v",
				name, pol, ok, cold.group, cold.pol, cold.ok)
		}
	}
}
