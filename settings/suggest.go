package settings

import (
	"fmt"
	"strings"
)

// closest returns the candidate most similar to word, or "" when none is
// similar enough. Similarity is 1 - distance/longest, with a 0.6 cutoff.
func closest(word string, candidates []string) string {
	best, bestScore := "", 0.6
	lw := strings.ToLower(word)
	for _, c := range candidates {
		lc := strings.ToLower(c)
		longest := max(len([]rune(lw)), len([]rune(lc)))
		if longest == 0 {
			continue
		}
		score := 1 - float64(levenshtein(lw, lc))/float64(longest)
		if score >= bestScore && (best == "" || score > bestScore) {
			best, bestScore = c, score
		}
	}
	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// unknownKeyError reports an unexpected settings key at fullKey, suggesting
// the closest of known.
func unknownKeyError(fullKey, name string, known []string) error {
	if match := closest(name, known); match != "" {
		prefix := strings.TrimSuffix(fullKey, name)
		return configErrorf("Invalid setting %q. Did you mean %q?", fullKey, prefix+match)
	}
	return configErrorf("Invalid setting %q", fullKey)
}

// unknownTypeError reports an unregistered handler or filter name.
func unknownTypeError(kind, key, name string, known []string) error {
	msg := fmt.Sprintf("Bad value for %s: unknown %s %q", key, kind, name)
	if match := closest(name, known); match != "" {
		msg += fmt.Sprintf(". Did you mean %q?", match)
	}
	return configErrorf("%s", msg)
}
