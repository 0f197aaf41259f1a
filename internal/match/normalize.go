package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a string for comparison: lowercases, strips
// accents and diacritics, drops apostrophes, maps remaining
// non-alphanumeric characters to spaces, and collapses whitespace.
//
// Total over all inputs; Normalize("") == "". Idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)

	// NFD decomposition followed by removal of combining marks turns
	// "beyoncé" into "beyonce". Transformers carry state, so the chain is
	// built per call rather than shared.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			// apostrophes vanish so "don't" and "dont" compare equal
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
