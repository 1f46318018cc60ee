package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey converts a drug name into its normalized search key:
// NFKC normalization, lower-casing, and collapsing of any non-alphanumeric
// runs into single spaces. Dosage digits are kept since they distinguish
// strengths ("ibuprofen 400").
func NormalizeKey(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true // trims leading separators
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits a normalized key into its tokens.
func Tokens(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Fields(key)
}
