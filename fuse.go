// Package gofusesquirrel provides minimal, composable circuit-breaker
// middleware for protecting caller-owned resources, with optional gRPC
// server wiring, Prometheus metrics and OpenTelemetry tracing layered on
// top of the core [breaker] package.
package gofusesquirrel

import (
	"context"

	"github.com/Keksclan/goFuseSquirrel/breaker"
)

// HandlerFunc is the minimal unit of work that middlewares wrap.
type HandlerFunc func(ctx context.Context) error

// Middleware transforms a HandlerFunc, allowing pre/post behavior composition.
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes middlewares from left to right, i.e., Chain(A, B)(h) => A(B(h)).
func Chain(mw ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// Wrap applies the middleware chain to a handler and returns the wrapped handler.
func Wrap(h HandlerFunc, mw ...Middleware) HandlerFunc {
	if len(mw) == 0 {
		return h
	}
	return Chain(mw...)(h)
}

// Breach returns a Middleware that consults b before invoking the next
// handler. Every call is recorded as one unit of load; while the breaker
// is open the handler is skipped and [breaker.ErrOpen] returned.
func Breach(b breaker.Breaker) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context) error {
			if !b.IncrementAndCheckState(1) {
				return breaker.ErrOpen
			}
			return next(ctx)
		}
	}
}
