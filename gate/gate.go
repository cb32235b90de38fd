// Package gate combines a token-bucket rate limiter with a circuit
// breaker into a single admission decision: a request passes only when the
// bucket has tokens and the breaker, after recording the request as load,
// still allows operation. Requests shed by the limiter are not recorded on
// the breaker, so shedding does not contribute to tripping.
package gate

import (
	"time"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"golang.org/x/time/rate"
)

// Gate decides whether incoming load should be admitted.
type Gate struct {
	lim *rate.Limiter
	brk breaker.Breaker

	nowFunc func() time.Time // for testing; defaults to time.Now
}

// New creates a Gate admitting at most rps requests per second with the
// given burst size, guarded by b.
func New(rps float64, burst int, b breaker.Breaker) *Gate {
	return &Gate{
		lim:     rate.NewLimiter(rate.Limit(rps), burst),
		brk:     b,
		nowFunc: time.Now,
	}
}

// Allow reports whether a single request may proceed.
func (g *Gate) Allow() bool {
	return g.AllowN(1)
}

// AllowN reports whether n units of load may proceed. The limiter is
// consulted first; only admitted load is recorded on the breaker.
func (g *Gate) AllowN(n int) bool {
	if !g.lim.AllowN(g.nowFunc(), n) {
		return false
	}
	return g.brk.IncrementAndCheckState(int64(n))
}

// Breaker returns the breaker guarding this gate.
func (g *Gate) Breaker() breaker.Breaker {
	return g.brk
}
