package core

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NormalizeName trims `s` and applies Unicode canonical composition (NFC) so
// that visually identical names compare equal regardless of how the client
// composed them.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// FoldName returns the loose-matching form of a name: NFC-composed and case-folded.
func FoldName(s string) string {
	return strings.ToLower(NormalizeName(s))
}
