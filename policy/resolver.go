package policy

import "github.com/dgraph-io/ristretto/v2"

// memoMaxCost bounds the number of memoized resolutions. Method-name
// cardinality is normally tiny, but the memo must stay bounded when a
// client sends arbitrary method strings.
const memoMaxCost = 4096

// resolution is the memoized outcome of resolving one full method name.
type resolution struct {
	group string
	pol   *Policy
	ok    bool
}

// Resolver holds a set of method groups and resolves a full gRPC method
// name to the best-matching group and its associated policy. Resolution
// runs on the request hot path, so outcomes are memoized per method name;
// groups are immutable after construction, which keeps the memo valid for
// the resolver's lifetime.
type Resolver struct {
	groups []*GroupBuilder
	memo   *ristretto.Cache[string, resolution]
}

// NewResolver creates a Resolver from the supplied group builders.
func NewResolver(groups ...*GroupBuilder) (*Resolver, error) {
	memo, err := ristretto.NewCache(&ristretto.Config[string, resolution]{
		NumCounters: memoMaxCost * 10,
		MaxCost:     memoMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Resolver{groups: groups, memo: memo}, nil
}

// Resolve finds the best-matching group for fullMethod.
//
// Priority rules:
//   - Exact matches beat prefix matches, which beat regex matches.
//   - Among matches of the same kind the longer match wins.
//   - When two matches have equal kind and length the group that was
//     registered first (stable order) wins.
//
// If no group matches, ok is false.
func (res *Resolver) Resolve(fullMethod string) (groupName string, pol *Policy, ok bool) {
	if r, hit := res.memo.Get(fullMethod); hit {
		return r.group, r.pol, r.ok
	}

	r := res.resolve(fullMethod)

	// The memo write is best-effort; a dropped entry just means the next
	// call scans the rules again.
	res.memo.Set(fullMethod, r, 1)

	return r.group, r.pol, r.ok
}

// resolve scans all rules and picks the winner under the priority rules.
func (res *Resolver) resolve(fullMethod string) resolution {
	var r resolution
	bestKind := matchKind(-1)
	bestLen := -1

	for _, g := range res.groups {
		for _, ru := range g.rules {
			matched, mLen := ru.match(fullMethod)
			if !matched {
				continue
			}
			// A lower kind value means higher priority.
			better := bestKind < 0 ||
				ru.kind < bestKind ||
				(ru.kind == bestKind && mLen > bestLen)
			if better {
				bestKind = ru.kind
				bestLen = mLen
				r = resolution{group: g.name, pol: g.policy, ok: true}
			}
		}
	}
	return r
}
