package feedback

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultSimilarityThreshold is the minimum task-signature overlap for a
// past record to produce a suggestion.
const DefaultSimilarityThreshold = 0.4

var signatureStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "of": true,
	"in": true, "on": true, "for": true, "with": true, "and": true,
	"from": true, "at": true, "my": true, "me": true, "please": true,
}

// Signature normalizes a task description for comparison: lowercased,
// split on non-alphanumerics, stopwords dropped, tokens deduplicated and
// sorted. Two phrasings of the same task end up close or identical.
func Signature(task string) string {
	tokens := signatureTokens(task)
	return strings.Join(tokens, " ")
}

// Similarity returns the token overlap of two signatures in [0, 1]:
// the size of the intersection over the size of the union.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func signatureTokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if signatureStopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	sort.Strings(tokens)
	return tokens
}

func tokenSet(signature string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(signature) {
		set[token] = true
	}
	return set
}
