package gofusesquirrel

import (
	"net/http"

	"github.com/Keksclan/goFuseSquirrel/health"
	"github.com/Keksclan/goFuseSquirrel/interceptors"
	"github.com/Keksclan/goFuseSquirrel/internal/core"
	"github.com/Keksclan/goFuseSquirrel/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

// Server is a composable wrapper around a [grpc.Server] that guards
// registered services with circuit breakers via functional [Option]
// values passed to [NewServer].
//
// After construction the underlying gRPC server is available through
// [Server.GRPC] so that service implementations can be registered
// normally:
//
//	srv := gs.NewServer(
//		gs.WithRecovery(),
//		gs.WithBreaker("api", breaker.NewTimedSymmetric(100, time.Second)),
//	)
//	pb.RegisterMyServiceServer(srv.GRPC(), &myImpl{})
type Server struct {
	grpcServer *grpc.Server
	health     *health.Registry
	cfg        config
}

// NewServer creates a new [Server] by applying the supplied functional
// [Option] values and wiring the resulting unary and stream interceptor
// chains into [grpc.NewServer]. Middleware execution order is determined
// by fixed priority levels (see the package-level order constants), not by
// the order options are passed.
func NewServer(opts ...Option) *Server {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	guard := cfg.breaker
	name := cfg.breakerName
	if guard != nil && name == "" {
		name = "global"
	}
	if guard != nil && cfg.metrics != nil {
		guard = cfg.metrics.Instrument(name, guard)
	}

	registry := health.NewRegistry()
	if cfg.breaker != nil {
		// The health registry polls the raw breaker so health checks
		// are not counted as guarded requests.
		registry.Add(name, cfg.breaker)
	}

	var mb core.MiddlewareBuilder
	if cfg.recovery {
		mb.Add(orderRecovery, interceptors.RecoveryUnary(guard), interceptors.RecoveryStream(guard))
	}
	if cfg.tracing != nil {
		if cfg.tracing.Breaker == nil && cfg.breaker != nil {
			cfg.tracing.Breaker = cfg.breaker
			cfg.tracing.BreakerName = name
		}
		mb.Add(orderTracing, tracing.UnaryServerInterceptor(cfg.tracing), tracing.StreamServerInterceptor(cfg.tracing))
	}
	if guard != nil || cfg.resolver != nil {
		mb.Add(orderBreaker, interceptors.BreakerUnary(guard, cfg.resolver), interceptors.BreakerStream(guard, cfg.resolver))
	}
	for _, i := range cfg.unaryInterceptors {
		mb.Add(orderUser, i, nil)
	}
	for _, i := range cfg.streamInterceptors {
		mb.Add(orderUser, nil, i)
	}

	unary, stream := mb.Build()
	serverOpts := core.BuildServerOptions(unary, stream, interceptors.ChainUnary, interceptors.ChainStream)

	return &Server{
		grpcServer: grpc.NewServer(serverOpts...),
		health:     registry,
		cfg:        cfg,
	}
}

// GRPC returns the underlying *grpc.Server so callers can register
// services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// Health returns the server's breaker registry so additional breakers can
// be exposed through the health service.
func (s *Server) Health() *health.Registry {
	return s.health
}

// RegisterHealth registers the built-in fuse.Health service, reporting the
// state of every breaker in [Server.Health].
func (s *Server) RegisterHealth() {
	health.Register(s.grpcServer, s.health)
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics:
// the configured collector's registry when [WithMetrics] was used, the
// default registry otherwise.
func (s *Server) MetricsHandler() http.Handler {
	if s.cfg.metrics != nil {
		return s.cfg.metrics.Handler()
	}
	return promhttp.Handler()
}
