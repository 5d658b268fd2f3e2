package conductor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/resolver"
)

var (
	// ErrLookupFailed wraps transport failures of an explicit lookup; the
	// caller may retry.
	ErrLookupFailed = errors.New("lookup failed")
	// ErrInvalidQuery is returned for input that is neither an address nor a
	// supported name.
	ErrInvalidQuery = errors.New("not an address or supported name")
)

// Result is the outcome of an explicit lookup.
type Result struct {
	Query string
	Kind  identifier.Kind
	// Address is empty when a name did not resolve.
	Address string
	Score   *int
	Tier    reputation.Tier
	Profile *reputation.Profile
}

// Resolved reports whether the lookup reached an address.
func (r Result) Resolved() bool { return r.Address != "" }

// Lookup resolves, scores and profiles one identifier on demand. Unlike the
// page pipeline it reports transport failures instead of degrading to
// unscored. It does not touch page state and may run off the loop.
func (c *Conductor) Lookup(ctx context.Context, query string) (Result, error) {
	return Lookup(ctx, c.resolver, c.scorer, query)
}

// Lookup is the pipeline-free form of Conductor.Lookup.
func Lookup(ctx context.Context, res resolver.Resolver, scorer reputation.Scorer, query string) (Result, error) {
	query = strings.TrimSpace(query)
	kind, ok := identifier.Classify(query)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidQuery, query)
	}
	r := Result{Query: query, Kind: kind, Tier: reputation.Unscored}

	key := identifier.Normalize(query)
	if !kind.IsName() {
		r.Address = key
	} else {
		addr, err := res.Resolve(ctx, key)
		switch {
		case errors.Is(err, resolver.ErrUnresolvable):
			return r, nil
		case err != nil:
			return r, fmt.Errorf("%w: resolve %s: %w", ErrLookupFailed, key, err)
		}
		addr = strings.ToLower(addr)
		if !identifier.IsAddress(addr) {
			return r, nil
		}
		r.Address = addr
	}

	score, err := scorer.Score(ctx, r.Address)
	switch {
	case err == nil:
		r.Score = &score
	case errors.Is(err, reputation.ErrNotFound):
	default:
		return r, fmt.Errorf("%w: score %s: %w", ErrLookupFailed, r.Address, err)
	}

	p, err := scorer.Profile(ctx, r.Address)
	switch {
	case err == nil:
		r.Profile = &p
		if r.Score == nil && p.Score != nil {
			v := *p.Score
			r.Score = &v
		}
	case errors.Is(err, reputation.ErrNotFound):
	default:
		return r, fmt.Errorf("%w: profile %s: %w", ErrLookupFailed, r.Address, err)
	}
	r.Tier = reputation.TierFor(r.Score)
	return r, nil
}
