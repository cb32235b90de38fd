// Package metrics provides Prometheus instrumentation for circuit
// breakers: a per-breaker state gauge, a transition counter and a check
// counter split by outcome. One Collector typically serves a whole
// process; individual breakers attach by name.
package metrics

import (
	"net/http"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the breaker metric families.
type Collector struct {
	open        *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	checks      *prometheus.CounterVec

	reg *prometheus.Registry
}

// NewCollector creates a Collector and registers its metric families on
// reg. A nil reg registers them on a fresh private registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		open: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fuse_breaker_open",
			Help: "Whether the circuit breaker is open (1) or closed (0).",
		}, []string{"breaker"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuse_breaker_transitions_total",
			Help: "Number of state transitions per circuit breaker.",
		}, []string{"breaker", "from", "to"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuse_breaker_checks_total",
			Help: "Number of check calls per circuit breaker and outcome.",
		}, []string{"breaker", "outcome"}),
		reg: reg,
	}
	reg.MustRegister(c.open, c.transitions, c.checks)
	return c
}

// StateChange returns a listener for the named breaker, suitable for
// TimedConfig.OnStateChange or MemoryConfig.OnStateChange. It keeps the
// state gauge current and counts transitions. The gauge is initialized to
// closed so the series exists before the first transition.
func (c *Collector) StateChange(name string) breaker.StateChangeFunc {
	c.open.WithLabelValues(name).Set(0)
	return func(from, to breaker.State) {
		c.transitions.WithLabelValues(name, from.String(), to.String()).Inc()
		if to == breaker.Open {
			c.open.WithLabelValues(name).Set(1)
		} else {
			c.open.WithLabelValues(name).Set(0)
		}
	}
}

// Observe records the outcome of one check call for the named breaker.
func (c *Collector) Observe(name string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	c.checks.WithLabelValues(name, outcome).Inc()
}

// Instrument wraps b so that every check call is counted under name. The
// wrapped breaker delegates all behaviour to b.
func (c *Collector) Instrument(name string, b breaker.Breaker) breaker.Breaker {
	return &instrumented{name: name, b: b, c: c}
}

// Handler returns an http.Handler serving the collector's registry in the
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

type instrumented struct {
	name string
	b    breaker.Breaker
	c    *Collector
}

var _ breaker.Breaker = (*instrumented)(nil)

func (i *instrumented) IsOpen() bool   { return i.b.IsOpen() }
func (i *instrumented) IsClosed() bool { return i.b.IsClosed() }
func (i *instrumented) Open()          { i.b.Open() }
func (i *instrumented) Close()         { i.b.Close() }

func (i *instrumented) CheckState() bool {
	allowed := i.b.CheckState()
	i.c.Observe(i.name, allowed)
	return allowed
}

func (i *instrumented) IncrementAndCheckState(delta int64) bool {
	allowed := i.b.IncrementAndCheckState(delta)
	i.c.Observe(i.name, allowed)
	return allowed
}
