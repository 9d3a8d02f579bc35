package validation

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// stopwords are stripped from institution names before similarity
// comparison (spec.md §4.5, Institutional Conflict Check).
var stopwords = map[string]struct{}{
	"university": {}, "college": {}, "institute": {}, "hospital": {},
	"medical": {}, "center": {},
}

func stripStopwords(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	kept := fields[:0]
	for _, f := range fields {
		if _, drop := stopwords[f]; !drop {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// normalizedSimilarity computes 1 - distance/max(len(a), len(b)), the
// normalised Levenshtein similarity spec.md §4.5 requires for both name and
// institution matching. Two empty strings are defined as dissimilar (0),
// not 1, since there's nothing to match on.
func normalizedSimilarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// nameSimilarity compares two case-folded author names.
func nameSimilarity(a, b string) float64 {
	return normalizedSimilarity(strings.ToLower(a), strings.ToLower(b))
}

// institutionSimilarity compares two institution names with common
// stopwords removed, per spec.md §4.5.
func institutionSimilarity(a, b string) float64 {
	return normalizedSimilarity(stripStopwords(a), stripStopwords(b))
}
