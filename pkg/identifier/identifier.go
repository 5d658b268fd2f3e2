// Package identifier recognizes blockchain identifiers in page text: raw
// addresses, name-service names (*.eth) and vanity sub-identities (*.base.eth).
package identifier

import (
	"strings"
)

// Kind distinguishes the identifier families.
type Kind int

const (
	RawAddress Kind = iota
	ENSName
	BaseName
)

func (k Kind) String() string {
	switch k {
	case RawAddress:
		return "address"
	case ENSName:
		return "ens"
	case BaseName:
		return "basename"
	default:
		return "unknown"
	}
}

// IsName reports whether identifiers of this kind need resolving to an address.
func (k Kind) IsName() bool {
	return k == ENSName || k == BaseName
}

// Specificity ranks families for overlap resolution (higher wins).
func (k Kind) Specificity() int {
	switch k {
	case BaseName:
		return 3
	case ENSName:
		return 2
	default:
		return 1
	}
}

// ParseKind parses the String form back into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "address":
		return RawAddress, true
	case "ens":
		return ENSName, true
	case "basename":
		return BaseName, true
	default:
		return RawAddress, false
	}
}

const (
	// BaseSuffix is the vanity sub-identity suffix.
	BaseSuffix = ".base.eth"
	// ENSSuffix is the name-service suffix.
	ENSSuffix = ".eth"
	// ZeroAddress is returned by resolvers for unset records.
	ZeroAddress = "0x0000000000000000000000000000000000000000"
)

// Normalize case-folds an identifier for keying and lookups.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsAddress reports whether s is exactly a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	if len(s) != 42 || s[0] != '0' || s[1] != 'x' {
		return false
	}
	for i := 2; i < len(s); i++ {
		if !isHex(s[i]) {
			return false
		}
	}
	return true
}

// Classify determines the kind of a standalone identifier, as typed into the
// lookup box. ok is false when s is none of the three families.
func Classify(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch {
	case IsAddress(lower):
		return RawAddress, true
	case strings.HasSuffix(lower, BaseSuffix) && validLabel(lower[:len(lower)-len(BaseSuffix)]):
		return BaseName, true
	case strings.HasSuffix(lower, ENSSuffix) && validLabel(lower[:len(lower)-len(ENSSuffix)]):
		return ENSName, true
	default:
		return RawAddress, false
	}
}

func validLabel(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLabelByte(s[i]) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isLabelByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-'
}
