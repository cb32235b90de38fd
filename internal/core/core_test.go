package core

import (
	"context"
	"testing"

	"google.golang.org/grpc"
)

func TestBuildSortsByOrder(t *testing.T) {
	var got []string
	mk := func(tag string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			got = append(got, tag)
			return handler(ctx, req)
		}
	}

	var b MiddlewareBuilder
	b.Add(20, mk("late"), nil)
	b.Add(0, mk("early"), nil)
	b.Add(10, mk("middle"), nil)

	unary, stream := b.Build()
	if len(unary) != 3 || len(stream) != 0 {
		t.Fatalf("expected 3 unary and 0 stream interceptors, got %d/%d", len(unary), len(stream))
	}

	for _, ic := range unary {
		_, _ = ic(context.Background(), nil, &grpc.UnaryServerInfo{},
			func(ctx context.Context, req any) (any, error) { return nil, nil })
	}
	if got[0] != "early" || got[1] != "middle" || got[2] != "late" {
		t.Fatalf("expected order [early middle late], got %v", got)
	}
}

func TestBuildStableOnEqualOrder(t *testing.T) {
	noop := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(ctx, req)
	}

	var b MiddlewareBuilder
	b.Add(5, noop, nil)
	b.Add(5, nil, func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, ss)
	})

	unary, stream := b.Build()
	if len(unary) != 1 || len(stream) != 1 {
		t.Fatalf("expected 1 unary and 1 stream interceptor, got %d/%d", len(unary), len(stream))
	}
}

func TestBuildServerOptionsSkipsEmptyChains(t *testing.T) {
	chainU := func(ics []grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
		if len(ics) == 0 {
			return nil
		}
		return ics[0]
	}
	chainS := func(ics []grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
		if len(ics) == 0 {
			return nil
		}
		return ics[0]
	}

	if opts := BuildServerOptions(nil, nil, chainU, chainS); len(opts) != 0 {
		t.Fatalf("expected no options for empty chains, got %d", len(opts))
	}
}
