package gofusesquirrel

import (
	"github.com/Keksclan/goFuseSquirrel/breaker"
	"github.com/Keksclan/goFuseSquirrel/metrics"
	"github.com/Keksclan/goFuseSquirrel/policy"
	"github.com/Keksclan/goFuseSquirrel/tracing"
	"google.golang.org/grpc"
)

// Middleware priority levels. Lower values run earlier in the chain, so
// recovery wraps everything, tracing observes the breaker decision, and
// user interceptors run innermost.
const (
	orderRecovery = 0
	orderTracing  = 10
	orderBreaker  = 20
	orderUser     = 50
)

// config holds the internal configuration assembled via functional options.
type config struct {
	recovery    bool
	breakerName string
	breaker     breaker.Breaker
	resolver    *policy.Resolver
	tracing     *tracing.Config
	metrics     *metrics.Collector

	unaryInterceptors  []grpc.UnaryServerInterceptor
	streamInterceptors []grpc.StreamServerInterceptor
}
