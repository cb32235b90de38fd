package gofusesquirrel

import (
	"github.com/Keksclan/goFuseSquirrel/breaker"
	"github.com/Keksclan/goFuseSquirrel/metrics"
	"github.com/Keksclan/goFuseSquirrel/policy"
	"github.com/Keksclan/goFuseSquirrel/tracing"
	"google.golang.org/grpc"
)

// Option configures a Server.
type Option func(*config)

// WithUnaryInterceptor appends a unary server interceptor to the chain.
// User interceptors run after the built-in middleware.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return func(c *config) {
		c.unaryInterceptors = append(c.unaryInterceptors, i)
	}
}

// WithStreamInterceptor appends a stream server interceptor to the chain.
func WithStreamInterceptor(i grpc.StreamServerInterceptor) Option {
	return func(c *config) {
		c.streamInterceptors = append(c.streamInterceptors, i)
	}
}

// WithRecovery enables panic-recovery interceptors so that a panic inside
// a handler returns codes.Internal instead of crashing the process. When a
// breaker is configured via [WithBreaker], recovered panics are recorded
// on it as load.
func WithRecovery() Option {
	return func(c *config) {
		c.recovery = true
	}
}

// WithBreaker installs b as the global circuit breaker guarding every RPC.
// The breaker is registered in the server's health registry under name and
// labels its metrics and trace attributes.
func WithBreaker(name string, b breaker.Breaker) Option {
	return func(c *config) {
		c.breakerName = name
		c.breaker = b
	}
}

// WithBreakerPolicies installs per-method-group circuit breakers resolved
// through r. Methods that match no group fall back to the global breaker,
// when one is configured.
func WithBreakerPolicies(r *policy.Resolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithOpenTelemetry enables the OpenTelemetry tracing interceptors with
// the given configuration. When cfg.Breaker is nil the server's global
// breaker is attached so spans record the circuit state.
func WithOpenTelemetry(cfg tracing.Config) Option {
	return func(c *config) {
		c.tracing = &cfg
	}
}

// WithMetrics instruments the global breaker with col and exposes its
// registry via [Server.MetricsHandler].
func WithMetrics(col *metrics.Collector) Option {
	return func(c *config) {
		c.metrics = col
	}
}
