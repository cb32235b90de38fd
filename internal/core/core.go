// Package core holds the wiring logic shared by the public Server API:
// ordering middleware deterministically and translating the resulting
// interceptor chains into grpc.ServerOption values. Keeping it internal
// leaves the public surface free of assembly details.
package core

import (
	"cmp"
	"slices"

	"google.golang.org/grpc"
)

// entry is a single interceptor pair (unary + stream) with a deterministic
// execution order. Lower Order values run first. Either interceptor may be
// nil when only one direction is needed.
type entry struct {
	unary  grpc.UnaryServerInterceptor
	stream grpc.StreamServerInterceptor
	order  int
}

// MiddlewareBuilder collects middleware entries and produces sorted
// interceptor slices ready for chaining.
type MiddlewareBuilder struct {
	entries []entry
}

// Add registers an interceptor pair with the given order.
func (b *MiddlewareBuilder) Add(order int, unary grpc.UnaryServerInterceptor, stream grpc.StreamServerInterceptor) {
	b.entries = append(b.entries, entry{unary: unary, stream: stream, order: order})
}

// Build sorts the collected entries by order (stable, so equal orders keep
// registration order) and returns the separated unary and stream slices.
func (b *MiddlewareBuilder) Build() ([]grpc.UnaryServerInterceptor, []grpc.StreamServerInterceptor) {
	slices.SortStableFunc(b.entries, func(x, y entry) int {
		return cmp.Compare(x.order, y.order)
	})

	var unary []grpc.UnaryServerInterceptor
	var stream []grpc.StreamServerInterceptor
	for _, e := range b.entries {
		if e.unary != nil {
			unary = append(unary, e.unary)
		}
		if e.stream != nil {
			stream = append(stream, e.stream)
		}
	}
	return unary, stream
}

// BuildServerOptions chains the interceptor slices and wraps the results
// as grpc.ServerOption values for grpc.NewServer.
func BuildServerOptions(
	unary []grpc.UnaryServerInterceptor,
	stream []grpc.StreamServerInterceptor,
	chainUnary func([]grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor,
	chainStream func([]grpc.StreamServerInterceptor) grpc.StreamServerInterceptor,
) []grpc.ServerOption {
	var opts []grpc.ServerOption

	if u := chainUnary(unary); u != nil {
		opts = append(opts, grpc.UnaryInterceptor(u))
	}
	if s := chainStream(stream); s != nil {
		opts = append(opts, grpc.StreamInterceptor(s))
	}
	return opts
}
