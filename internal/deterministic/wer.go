package deterministic

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Tokenize case-folds s, splits it on whitespace and trims punctuation from
// both ends of every word. Inner apostrophes and hyphens survive, so "don't"
// and "well-known" stay single words. Text is NFC-normalized first so a
// precomposed "é" matches "e" plus a combining accent.
func Tokenize(s string) []string {
	// A Caser is stateful; one per call.
	fields := strings.Fields(cases.Fold().String(norm.NFC.String(s)))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// WordErrorRate is the word-level edit distance (substitutions, insertions
// and deletions) between reference and hypothesis, divided by the reference
// length. An empty reference yields 0 for an empty hypothesis and the
// hypothesis length otherwise.
func WordErrorRate(reference, hypothesis []string) float64 {
	d := editDistance(reference, hypothesis)
	if len(reference) == 0 {
		return float64(d)
	}
	return float64(d) / float64(len(reference))
}

// editDistance is Levenshtein over words using two rolling rows.
func editDistance(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
