package utils

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/amaumene/tamilarr/internal/parser"
)

// MinMatchRatio is the share of significant query words a candidate must contain
const MinMatchRatio = 0.5

// SignificantWords returns the normalized words of s longer than two characters
func SignificantWords(s string) []string {
	var words []string
	for _, word := range strings.Fields(parser.Normalize(s)) {
		if len(word) > 2 {
			words = append(words, word)
		}
	}
	return words
}

// MatchRatio returns the fraction of the query's significant words found in candidate.
// Words of five or more characters also match at edit distance one.
func MatchRatio(query, candidate string) float64 {
	queryWords := SignificantWords(query)
	if len(queryWords) == 0 {
		return 0
	}

	candidateWords := strings.Fields(parser.Normalize(candidate))
	matched := 0
	for _, qw := range queryWords {
		for _, cw := range candidateWords {
			if qw == cw || (len(qw) >= 5 && len(cw) >= 5 && levenshtein.ComputeDistance(qw, cw) <= 1) {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(len(queryWords))
}

// TitlesMatch reports whether candidate is the same title as query.
// When both years are known they must agree.
func TitlesMatch(query string, queryYear int, candidate string, candidateYear int) bool {
	if queryYear != 0 && candidateYear != 0 && queryYear != candidateYear {
		return false
	}
	return MatchRatio(query, candidate) >= MinMatchRatio
}
