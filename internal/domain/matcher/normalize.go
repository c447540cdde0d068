package matcher

import "strings"

// Normalize canonicalizes free-text for comparison: lowercase, every
// character outside [a-z0-9] becomes a space, runs of whitespace collapse
// to one, leading/trailing whitespace is trimmed.
//
// Bank statement text arrives in wildly inconsistent shapes
// ("PYMT*JOHN-DOE/REF 123"), so both sides of every comparison go through
// this first.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true // trims leading whitespace
	for _, r := range strings.ToLower(s) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}
