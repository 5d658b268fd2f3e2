package reputation

import (
	"strconv"
	"testing"
)

func ptr(v int) *int { return &v }

func TestTierFor(t *testing.T) {
	cases := []struct {
		score *int
		want  Tier
	}{
		{nil, Unscored},
		{ptr(-5), Untrusted},
		{ptr(0), Untrusted},
		{ptr(799), Untrusted},
		{ptr(800), Questionable},
		{ptr(999), Questionable},
		{ptr(1000), Neutral},
		{ptr(1199), Neutral},
		{ptr(1200), Known},
		{ptr(1399), Known},
		{ptr(1400), Established},
		{ptr(1450), Established},
		{ptr(1600), Reputable},
		{ptr(1800), Exemplary},
		{ptr(2000), Distinguished},
		{ptr(2200), Revered},
		{ptr(2399), Revered},
		{ptr(2400), Renowned},
		{ptr(9000), Renowned},
	}
	for _, c := range cases {
		if got := TierFor(c.score); got != c.want {
			s := "nil"
			if c.score != nil {
				s = strconv.Itoa(*c.score)
			}
			t.Errorf("TierFor(%s) = %s, want %s", s, got, c.want)
		}
	}
}

func TestRankAndParse(t *testing.T) {
	if Unscored.Rank() != -1 || Untrusted.Rank() != 0 || Renowned.Rank() != 9 {
		t.Error("unexpected ranks")
	}
	if len(Tiers()) != 10 {
		t.Errorf("Tiers() has %d entries", len(Tiers()))
	}
	if _, ok := ParseTier("established"); !ok {
		t.Error("established should parse")
	}
	if _, ok := ParseTier("unscored"); !ok {
		t.Error("unscored should parse")
	}
	if _, ok := ParseTier("legendary"); ok {
		t.Error("legendary should not parse")
	}
}
