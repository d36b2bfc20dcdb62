package entity

import (
	"slices"
	"strings"
)

// NormalizeAttribute trims surrounding whitespace and lower-cases a token.
func NormalizeAttribute(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeAttributes returns the sorted, de-duplicated set of normalized tokens.
// Empty tokens are dropped.
func NormalizeAttributes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if n := NormalizeAttribute(a); n != "" {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
