package identifier

import (
	"regexp"
	"sort"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Match is one identifier occurrence inside a single text run.
// Start and End are byte offsets into the run.
type Match struct {
	Text  string
	Start int
	End   int
	Kind  Kind
}

// Key returns the case-folded lookup key of the match.
func (m Match) Key() string { return Normalize(m.Text) }

func (m Match) overlaps(o Match) bool {
	return m.Start < o.End && o.Start < m.End
}

// trigger indexes, in the order passed to the builder
const (
	trigAddress = iota
	trigENS
	trigBase
)

// Matcher holds the compiled pattern families. It is safe for concurrent use.
type Matcher struct {
	// triggers decides which families can possibly match a run
	triggers ahocorasick.AhoCorasick

	addressRe *regexp.Regexp
	ensRe     *regexp.Regexp
	baseRe    *regexp.Regexp
}

// NewMatcher compiles the three families.
func NewMatcher() *Matcher {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	return &Matcher{
		triggers: builder.Build([]string{"0x", ENSSuffix, BaseSuffix}),

		// 0x + 40 hex, not glued to surrounding word characters
		addressRe: regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`),

		// label.eth (second level only)
		ensRe: regexp.MustCompile(`\b[a-zA-Z0-9-]+\.eth\b`),

		// label.base.eth
		baseRe: regexp.MustCompile(`\b[a-zA-Z0-9-]+\.base\.eth\b`),
	}
}

// Find returns the non-overlapping identifiers in text, ordered by descending
// start offset so callers can splice the run from its end.
func (m *Matcher) Find(text string) []Match {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var seen [3]bool
	it := m.triggers.Iter(text)
	for hit := it.Next(); hit != nil; hit = it.Next() {
		seen[hit.Pattern()] = true
		if seen[trigAddress] && seen[trigENS] && seen[trigBase] {
			break
		}
	}

	// A .base.eth hit hides its inner .eth, but any plain name that could sit
	// inside it is preceded by a dot and rejected anyway.
	var candidates [][]Match
	if seen[trigBase] {
		candidates = append(candidates, m.family(text, m.baseRe, BaseName))
	}
	if seen[trigENS] {
		candidates = append(candidates, m.family(text, m.ensRe, ENSName))
	}
	if seen[trigAddress] {
		candidates = append(candidates, m.family(text, m.addressRe, RawAddress))
	}
	if len(candidates) == 0 {
		return nil
	}

	var accepted []Match
	for _, family := range candidates {
		for _, c := range family {
			if !overlapsAny(c, accepted) {
				accepted = append(accepted, c)
			}
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start > accepted[j].Start })
	return accepted
}

func (m *Matcher) family(text string, re *regexp.Regexp, kind Kind) []Match {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if kind.IsName() && !nameBoundary(text, start, end) {
			continue
		}
		if kind == RawAddress && !addressBoundary(text, start) {
			continue
		}
		out = append(out, Match{Text: text[start:end], Start: start, End: end, Kind: kind})
	}
	return out
}

// nameBoundary rejects names glued to a hyphen or a dot on either side, which
// \b alone does not exclude. Only second-level names count: "sub.vitalik.eth"
// and "vitalik.eth.limo" yield nothing.
func nameBoundary(text string, start, end int) bool {
	if start > 0 && (text[start-1] == '-' || text[start-1] == '.') {
		return false
	}
	if end < len(text) && (text[end] == '-' || (text[end] == '.' && end+1 < len(text) && isLabelByte(text[end+1]))) {
		return false
	}
	return text[start] != '-'
}

// addressBoundary rejects addresses glued to a preceding dot or hyphen. A name
// followed by ".0x…" is then rejected together with the address, so splitting
// the run around a marker can never expose the name on a later pass.
func addressBoundary(text string, start int) bool {
	return start == 0 || (text[start-1] != '.' && text[start-1] != '-')
}

func overlapsAny(c Match, accepted []Match) bool {
	for _, a := range accepted {
		if c.overlaps(a) {
			return true
		}
	}
	return false
}
