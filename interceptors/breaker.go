package interceptors

import (
	"context"
	"sync"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"github.com/Keksclan/goFuseSquirrel/policy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errCircuitOpen is allocated once to avoid per-request allocations on the
// hot path.
var errCircuitOpen = status.Error(codes.Unavailable, "circuit breaker open")

// breakerState holds the global breaker, an optional policy resolver, and
// per-group breakers created lazily from resolved breaker rules.
type breakerState struct {
	global   breaker.Breaker
	resolver *policy.Resolver

	mu     sync.Mutex
	groups map[string]breaker.Breaker
}

// breakerFor returns the per-group breaker when the resolver matches
// fullMethod to a group with a Breaker rule. Otherwise it returns the
// global breaker, which may be nil.
func (s *breakerState) breakerFor(fullMethod string) breaker.Breaker {
	if s.resolver != nil {
		if name, pol, ok := s.resolver.Resolve(fullMethod); ok && pol != nil && pol.Breaker != nil {
			return s.groupBreaker(name, pol.Breaker)
		}
	}
	return s.global
}

// groupBreaker returns (or lazily creates) a per-group breaker keyed by the
// resolved group name.
func (s *breakerState) groupBreaker(name string, rule *policy.BreakerRule) breaker.Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.groups[name]; ok {
		return b
	}
	b := breaker.NewTimed(breaker.TimedConfig{
		OpeningThreshold: rule.OpeningThreshold,
		OpeningInterval:  rule.OpeningInterval,
		ClosingThreshold: rule.ClosingThreshold,
		ClosingInterval:  rule.ClosingInterval,
	})
	s.groups[name] = b
	return b
}

// admit records one unit of load on the applicable breaker and reports
// whether the request may proceed.
func (s *breakerState) admit(fullMethod string) bool {
	b := s.breakerFor(fullMethod)
	if b == nil {
		return true
	}
	return b.IncrementAndCheckState(1)
}

// BreakerUnary returns a unary server interceptor that records every
// request as one unit of load on the applicable circuit breaker and
// rejects requests with codes.Unavailable while the breaker is open. When
// a policy resolver is provided and the method matches a group with a
// Breaker rule, that group's breaker is used; otherwise the global breaker
// applies.
func BreakerUnary(global breaker.Breaker, r *policy.Resolver) grpc.UnaryServerInterceptor {
	st := &breakerState{global: global, resolver: r, groups: make(map[string]breaker.Breaker)}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !st.admit(info.FullMethod) {
			return nil, errCircuitOpen
		}
		return handler(ctx, req)
	}
}

// BreakerStream returns a stream server interceptor that records every
// stream as one unit of load on the applicable circuit breaker and rejects
// streams with codes.Unavailable while the breaker is open.
func BreakerStream(global breaker.Breaker, r *policy.Resolver) grpc.StreamServerInterceptor {
	st := &breakerState{global: global, resolver: r, groups: make(map[string]breaker.Breaker)}
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if !st.admit(info.FullMethod) {
			return errCircuitOpen
		}
		return handler(srv, ss)
	}
}
