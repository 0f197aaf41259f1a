package match

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// EditDistance returns the Levenshtein distance between a and b, with
// insertion, deletion, and substitution each costing 1.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity returns a normalized similarity ratio in [0, 1]: 1 for equal
// strings, 0 when either is empty, otherwise 1 - distance/maxLen over rune
// counts. Fewer edits between strings of fixed lengths always scores higher.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}

	return 1 - float64(EditDistance(a, b))/float64(maxLen)
}
