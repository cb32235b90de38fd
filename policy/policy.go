// Package policy maps gRPC method names to named groups and the breaker
// parameters that apply to them. Groups are built once at startup from
// exact, prefix and regex rules; the resolver picks the best-matching
// group for each incoming full method name.
package policy

import (
	"regexp"
	"time"
)

// BreakerRule describes the circuit breaker applied to a group of methods.
type BreakerRule struct {
	// OpeningThreshold trips the group's breaker when more than this
	// number of requests arrives within OpeningInterval.
	OpeningThreshold int64

	// OpeningInterval is the check interval while the breaker is closed.
	OpeningInterval time.Duration

	// ClosingThreshold closes the breaker again when a full
	// ClosingInterval saw fewer than this number of requests.
	ClosingThreshold int64

	// ClosingInterval is the check interval while the breaker is open.
	ClosingInterval time.Duration
}

// Policy holds the configuration that applies to a matched method group.
type Policy struct {
	Breaker *BreakerRule
}

// matchKind distinguishes the three matching strategies.
type matchKind int

const (
	kindExact  matchKind = iota // highest priority
	kindPrefix                  // medium priority
	kindRegex                   // lowest priority
)

// rule is a single matching rule inside a group.
type rule struct {
	kind    matchKind
	pattern string         // exact and prefix matches
	re      *regexp.Regexp // regex matches
}

// match reports whether r matches fullMethod and, when it does, the length
// of the matched portion (used for tie-breaking among same-kind rules).
func (r *rule) match(fullMethod string) (matched bool, length int) {
	switch r.kind {
	case kindExact:
		if fullMethod == r.pattern {
			return true, len(r.pattern)
		}
	case kindPrefix:
		if len(fullMethod) >= len(r.pattern) && fullMethod[:len(r.pattern)] == r.pattern {
			return true, len(r.pattern)
		}
	case kindRegex:
		if loc := r.re.FindStringIndex(fullMethod); loc != nil {
			return true, loc[1] - loc[0]
		}
	}
	return false, 0
}

// GroupBuilder constructs a method group with one or more matching rules
// and a policy.
type GroupBuilder struct {
	name   string
	rules  []rule
	policy *Policy
}

// Group starts building a new method group with the given name.
func Group(name string) *GroupBuilder {
	return &GroupBuilder{name: name}
}

// Exact adds an exact-match rule for pattern.
func (g *GroupBuilder) Exact(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindExact, pattern: pattern})
	return g
}

// Prefix adds a prefix-match rule for pattern.
func (g *GroupBuilder) Prefix(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindPrefix, pattern: pattern})
	return g
}

// Regex adds a regex-match rule for pattern. The pattern is compiled
// immediately; an invalid regex will panic.
func (g *GroupBuilder) Regex(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindRegex, pattern: pattern, re: regexp.MustCompile(pattern)})
	return g
}

// Policy attaches a Policy to the group and returns the builder.
func (g *GroupBuilder) Policy(p Policy) *GroupBuilder {
	g.policy = &p
	return g
}
