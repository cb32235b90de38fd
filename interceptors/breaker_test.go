package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"github.com/Keksclan/goFuseSquirrel/policy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func invoke(t *testing.T, ic grpc.UnaryServerInterceptor, fullMethod string) error {
	t.Helper()
	_, err := ic(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: fullMethod},
		func(ctx context.Context, req any) (any, error) { return "ok", nil },
	)
	return err
}

func TestBreakerUnaryAllowsWhileClosed(t *testing.T) {
	b := breaker.NewTimedSymmetric(100, time.Minute)
	ic := BreakerUnary(b, nil)

	if err := invoke(t, ic, "/svc.Svc/Do"); err != nil {
		t.Fatalf("expected request to pass, got %v", err)
	}
}

func TestBreakerUnaryRejectsWhenOpen(t *testing.T) {
	b := breaker.NewTimedSymmetric(2, time.Minute)
	ic := BreakerUnary(b, nil)

	var err error
	for range 5 {
		err = invoke(t, ic, "/svc.Svc/Do")
	}
	if err == nil {
		t.Fatal("expected rejection once the breaker tripped")
	}
	if st, _ := status.FromError(err); st.Code() != codes.Unavailable {
		t.Fatalf("expected codes.Unavailable, got %v", st.Code())
	}
}

func TestBreakerUnaryNilGlobalPassesThrough(t *testing.T) {
	ic := BreakerUnary(nil, nil)

	for range 10 {
		if err := invoke(t, ic, "/svc.Svc/Do"); err != nil {
			t.Fatalf("expected pass-through with no breaker, got %v", err)
		}
	}
}

func TestBreakerUnaryPerGroupIsolation(t *testing.T) {
	r, err := policy.NewResolver(
		policy.Group("payments").Prefix("/payments.").Policy(policy.Policy{
			Breaker: &policy.BreakerRule{
				OpeningThreshold: 2,
				OpeningInterval:  time.Minute,
				ClosingThreshold: 1,
				ClosingInterval:  time.Minute,
			},
		}),
	)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	global := breaker.NewTimedSymmetric(100, time.Minute)
	ic := BreakerUnary(global, r)

	// Trip the payments group.
	var last error
	for range 5 {
		last = invoke(t, ic, "/payments.Payments/Charge")
	}
	if last == nil {
		t.Fatal("expected the payments group to be tripped")
	}

	// Unmatched methods ride the healthy global breaker.
	if err := invoke(t, ic, "/orders.Orders/Create"); err != nil {
		t.Fatalf("expected unmatched method to pass, got %v", err)
	}
}

func TestBreakerStreamRejectsWhenOpen(t *testing.T) {
	b := breaker.NewTimedSymmetric(0, time.Minute)
	ic := BreakerStream(b, nil)

	// Threshold 0: the first stream already exceeds it.
	err := ic(nil, nil,
		&grpc.StreamServerInfo{FullMethod: "/svc.Svc/Watch"},
		func(srv any, ss grpc.ServerStream) error { return nil },
	)
	if st, _ := status.FromError(err); st.Code() != codes.Unavailable {
		t.Fatalf("expected codes.Unavailable, got %v", err)
	}
}
