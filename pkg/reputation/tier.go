package reputation

// Tier is a named reputation bucket derived from a score.
type Tier string

const (
	Unscored      Tier = "unscored"
	Untrusted     Tier = "untrusted"
	Questionable  Tier = "questionable"
	Neutral       Tier = "neutral"
	Known         Tier = "known"
	Established   Tier = "established"
	Reputable     Tier = "reputable"
	Exemplary     Tier = "exemplary"
	Distinguished Tier = "distinguished"
	Revered       Tier = "revered"
	Renowned      Tier = "renowned"
)

// breakpoints are lower bounds, ascending.
var breakpoints = []struct {
	min  int
	tier Tier
}{
	{0, Untrusted},
	{800, Questionable},
	{1000, Neutral},
	{1200, Known},
	{1400, Established},
	{1600, Reputable},
	{1800, Exemplary},
	{2000, Distinguished},
	{2200, Revered},
	{2400, Renowned},
}

// TierFor maps a score to its tier. A nil score is Unscored; negative scores
// fall into the lowest bucket.
func TierFor(score *int) Tier {
	if score == nil {
		return Unscored
	}
	t := Untrusted
	for _, b := range breakpoints {
		if *score < b.min {
			break
		}
		t = b.tier
	}
	return t
}

// Tiers lists the scored tiers from lowest to highest.
func Tiers() []Tier {
	out := make([]Tier, len(breakpoints))
	for i, b := range breakpoints {
		out[i] = b.tier
	}
	return out
}

// Rank orders tiers for filtering: Unscored is -1, Untrusted 0, Renowned 9.
// Unknown names rank -1.
func (t Tier) Rank() int {
	for i, b := range breakpoints {
		if b.tier == t {
			return i
		}
	}
	return -1
}

// ParseTier accepts any tier name, including "unscored".
func ParseTier(s string) (Tier, bool) {
	t := Tier(s)
	if t == Unscored || t.Rank() >= 0 {
		return t, true
	}
	return Unscored, false
}
