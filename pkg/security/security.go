// Package security is the risk-scan collaborator behind the detail surface.
// A scan fans out one flag query per chain plus one blacklist query and never
// fails as a whole: failed sources are reported so a partial scan is not
// mistaken for a clean one.
package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arshiaxbt/Aura/internal/logging"
)

// DefaultChains are the chain IDs scanned when none are configured:
// Ethereum, Base, Optimism, Arbitrum, Polygon.
var DefaultChains = []int{1, 8453, 10, 42161, 137}

// FlagSource returns the risk labels raised for an address on one chain.
type FlagSource interface {
	Flags(ctx context.Context, chainID int, address string) ([]string, error)
}

// Blacklist reports blacklist membership.
type Blacklist interface {
	Listed(ctx context.Context, address string) (bool, error)
}

// ErrNotConfigured is recorded for a source the scanner was built without.
var ErrNotConfigured = errors.New("not configured")

// Failure records one source that could not be queried.
type Failure struct {
	Source string `json:"source"`
	Err    string `json:"error"`
}

// Report is the merged outcome of a scan.
type Report struct {
	Address      string           `json:"address"`
	Flags        []string         `json:"flags"`
	FlagsByChain map[int][]string `json:"flagsByChain,omitempty"`
	Blacklisted  bool             `json:"blacklisted"`
	Failures     []Failure        `json:"failures,omitempty"`
	Partial      bool             `json:"partial"`
}

// Clean is true only when every source answered and none raised anything.
func (r Report) Clean() bool {
	return !r.Partial && len(r.Flags) == 0 && !r.Blacklisted
}

// Scanner aggregates a FlagSource over several chains and a Blacklist.
type Scanner struct {
	flags     FlagSource
	blacklist Blacklist
	chains    []int
	limit     int
	log       *slog.Logger
}

// NewScanner builds a Scanner. A nil chains slice uses DefaultChains. Either
// source may be nil; it is then reported as a failure with ErrNotConfigured,
// so the report can never read as clean.
func NewScanner(flags FlagSource, blacklist Blacklist, chains []int) *Scanner {
	if chains == nil {
		chains = DefaultChains
	}
	return &Scanner{
		flags:     flags,
		blacklist: blacklist,
		chains:    chains,
		limit:     4,
		log:       logging.Component("security"),
	}
}

func (s *Scanner) Scan(ctx context.Context, address string) Report {
	address = strings.ToLower(strings.TrimSpace(address))
	rep := Report{Address: address, FlagsByChain: map[int][]string{}}

	var (
		mu  sync.Mutex
		g   errgroup.Group
		all = map[string]struct{}{}
	)
	g.SetLimit(s.limit)

	fail := func(source string, err error) {
		s.log.Warn("security source failed", "source", source, "address", address, "err", err)
		mu.Lock()
		rep.Failures = append(rep.Failures, Failure{Source: source, Err: err.Error()})
		mu.Unlock()
	}

	missing := func(source string) {
		rep.Failures = append(rep.Failures, Failure{Source: source, Err: ErrNotConfigured.Error()})
	}

	if s.flags == nil {
		missing("flags")
	} else {
		for _, chain := range s.chains {
			g.Go(func() error {
				flags, err := s.flags.Flags(ctx, chain, address)
				if err != nil {
					fail(fmt.Sprintf("chain:%d", chain), err)
					return nil
				}
				mu.Lock()
				defer mu.Unlock()
				if len(flags) > 0 {
					rep.FlagsByChain[chain] = flags
				}
				for _, f := range flags {
					all[f] = struct{}{}
				}
				return nil
			})
		}
	}
	if s.blacklist == nil {
		missing("blacklist")
	} else {
		g.Go(func() error {
			listed, err := s.blacklist.Listed(ctx, address)
			if err != nil {
				fail("blacklist", err)
				return nil
			}
			mu.Lock()
			rep.Blacklisted = listed
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	rep.Flags = make([]string, 0, len(all))
	for f := range all {
		rep.Flags = append(rep.Flags, f)
	}
	sort.Strings(rep.Flags)
	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].Source < rep.Failures[j].Source })
	rep.Partial = len(rep.Failures) > 0
	return rep
}
