package interceptors

import (
	"context"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RecoveryUnary returns a unary server interceptor that recovers from
// panics and returns an Internal gRPC error instead of crashing the
// process. When b is non-nil, every recovered panic is additionally
// recorded on it as one unit of load, so a crash-looping handler trips the
// breaker like any other overload.
func RecoveryUnary(b breaker.Breaker) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				if b != nil {
					b.IncrementAndCheckState(1)
				}
				resp = nil
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStream returns a stream server interceptor that recovers from
// panics and returns an Internal gRPC error instead of crashing the
// process. When b is non-nil, recovered panics are recorded on it as load.
func RecoveryStream(b breaker.Breaker) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if r := recover(); r != nil {
				if b != nil {
					b.IncrementAndCheckState(1)
				}
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(srv, ss)
	}
}
