package match

import "strings"

// DefaultThreshold is the similarity ratio a candidate must clear when
// neither equality nor containment applies.
const DefaultThreshold = 0.8

// Matches reports whether query and candidate represent the same item.
//
// Both are normalized first; the stages short-circuit in order: exact
// equality, containment, similarity >= threshold. A threshold <= 0 falls
// back to [DefaultThreshold].
func Matches(query, candidate string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	q := Normalize(query)
	c := Normalize(candidate)

	if q == c {
		return true
	}

	if q != "" && c != "" && (strings.Contains(q, c) || strings.Contains(c, q)) {
		return true
	}

	return Similarity(q, c) >= threshold
}

// TrackMatches reports whether a catalog track with the given name and
// credited artists resolves the (title, artist) query. The title must match
// the track name and the artist must match at least one credited artist;
// multi-artist tracks match on any of them.
func TrackMatches(title, artist, trackName string, trackArtists []string, threshold float64) bool {
	if !Matches(title, trackName, threshold) {
		return false
	}

	for _, name := range trackArtists {
		if Matches(artist, name, threshold) {
			return true
		}
	}

	return false
}
