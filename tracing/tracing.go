// Package tracing provides OpenTelemetry support for breaker-guarded gRPC
// servers: RPC spans annotated with the guarding breaker's state, and a
// state-change listener that records every transition as a span of its
// own so trips and recoveries show up on the trace timeline even when no
// request is in flight.
package tracing

import (
	"context"
	"strings"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	grpcStatus "google.golang.org/grpc/status"
)

// Config holds the OpenTelemetry configuration used by the interceptors
// and the transition listener.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil
	// the global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// Propagators extracts and injects trace context from/into carriers.
	// When nil the global otel.GetTextMapPropagator() is used.
	Propagators propagation.TextMapPropagator

	// Breaker, when non-nil, is inspected on every RPC so the span
	// records whether the circuit was open at the time.
	Breaker breaker.Breaker

	// BreakerName labels the breaker attributes on spans. Defaults to
	// "global".
	BreakerName string
}

// tracer returns a configured [trace.Tracer].
func (c *Config) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/Keksclan/goFuseSquirrel/tracing")
}

// propagators returns the configured propagator (or global default).
func (c *Config) propagators() propagation.TextMapPropagator {
	if c.Propagators != nil {
		return c.Propagators
	}
	return otel.GetTextMapPropagator()
}

func (c *Config) breakerName() string {
	if c.BreakerName != "" {
		return c.BreakerName
	}
	return "global"
}

// StateChange returns a breaker listener that records every transition of
// the named breaker as a zero-duration span carrying the from/to states.
func (c *Config) StateChange(name string) breaker.StateChangeFunc {
	return func(from, to breaker.State) {
		_, span := c.tracer().Start(context.Background(), "breaker.transition")
		span.SetAttributes(
			attribute.String("fuse.breaker", name),
			attribute.String("fuse.breaker.from", from.String()),
			attribute.String("fuse.breaker.to", to.String()),
		)
		span.End()
	}
}

// UnaryServerInterceptor returns a [grpc.UnaryServerInterceptor] that
// creates a span for every unary RPC. If cfg is nil the interceptor is a
// no-op passthrough.
func UnaryServerInterceptor(cfg *Config) grpc.UnaryServerInterceptor {
	if cfg == nil {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			return handler(ctx, req)
		}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = extract(ctx, cfg)
		ctx, span := cfg.tracer().Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		annotate(span, cfg, info.FullMethod)

		resp, err := handler(ctx, req)
		recordStatus(span, err)
		return resp, err
	}
}

// StreamServerInterceptor returns a [grpc.StreamServerInterceptor] that
// creates a span for every streaming RPC. If cfg is nil the interceptor is
// a no-op passthrough.
func StreamServerInterceptor(cfg *Config) grpc.StreamServerInterceptor {
	if cfg == nil {
		return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
			return handler(srv, ss)
		}
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := extract(ss.Context(), cfg)
		ctx, span := cfg.tracer().Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		annotate(span, cfg, info.FullMethod)

		err := handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
		recordStatus(span, err)
		return err
	}
}

// --- helpers ----------------------------------------------------------------

// annotate sets the RPC attributes and, when a breaker is configured, its
// state at the time the span was started.
func annotate(span trace.Span, cfg *Config, fullMethod string) {
	service, method := splitFullMethod(fullMethod)
	span.SetAttributes(
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
	)
	if cfg.Breaker != nil {
		span.SetAttributes(
			attribute.String("fuse.breaker", cfg.breakerName()),
			attribute.Bool("fuse.breaker.open", cfg.Breaker.IsOpen()),
		)
	}
}

// metadataCarrier adapts gRPC [metadata.MD] to the OTel
// [propagation.TextMapCarrier] interface.
type metadataCarrier metadata.MD

func (mc metadataCarrier) Get(key string) string {
	vals := metadata.MD(mc).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

func (mc metadataCarrier) Keys() []string {
	md := metadata.MD(mc)
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	return keys
}

// extract pulls trace context from incoming gRPC metadata into ctx.
func extract(ctx context.Context, cfg *Config) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	return cfg.propagators().Extract(ctx, metadataCarrier(md))
}

// splitFullMethod splits "/service/method" into ("service", "method").
func splitFullMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(fullMethod, "/")
	if !ok {
		return fullMethod, ""
	}
	return service, method
}

// recordStatus sets the span status and records the gRPC status code.
func recordStatus(span trace.Span, err error) {
	st, _ := grpcStatus.FromError(err)
	span.SetAttributes(attribute.String("rpc.grpc.status_code", st.Code().String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, st.Message())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// wrappedStream overrides Context() to carry the traced context.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
