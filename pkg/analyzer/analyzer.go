// Package analyzer turns a raw query string into the normalized token
// stream the rest of the engine matches against term-stats.
package analyzer

import "strings"

// delimiters is the fixed set of code points a query is split on before any
// other normalization runs.
const delimiters = ",、　 "

// punctuation is the fixed ASCII punctuation set stripped from every token.
const punctuation = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~"

//nolint:gochecknoglobals
var stopWords = map[string]struct{}{
	"a": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "s": {}, "such": {},
	"t": {}, "that": {}, "the": {}, "their": {}, "then": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "to": {}, "was": {}, "will": {},
	"with": {}, "www": {},
}

// Analyze splits s on the delimiter set, lowercases and strips punctuation
// from each fragment, and drops fragments that are stop-words. Empty
// fragments are dropped: they carry no postings and only add ranking-
// irrelevant work downstream.
func Analyze(s string) []string {
	fragments := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(delimiters, r)
	})

	tokens := make([]string, 0, len(fragments))

	for _, f := range fragments {
		token := stripPunctuation(strings.ToLower(f))
		if token == "" {
			continue
		}

		if _, stop := stopWords[token]; stop {
			continue
		}

		tokens = append(tokens, token)
	}

	return tokens
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}

		return r
	}, s)
}
