// Package textmetrics provides pure statistical functions over transcript
// text: word counting, filler-expression detection, lexical diversity, and
// n-gram repetition. These feed the transcript classifier and the
// server-side speech statistics that overwrite whatever the judge model
// self-reports.
//
// All functions are deterministic and allocation-light; none of them touch
// the network or any model provider.
package textmetrics

import "strings"

// fillerExpressions is the fixed list of filler words and phrases counted by
// [Fillers]. Multi-word entries match only as contiguous token sequences.
var fillerExpressions = []string{
	"um", "uh", "er", "ah", "hmm",
	"like", "you know", "i mean", "so yeah",
	"basically", "actually", "literally",
	"kind of", "sort of", "right",
}

// WordCount returns the number of non-empty whitespace-separated tokens in
// text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Tokens splits text into lowercased word tokens with surrounding
// punctuation trimmed. Tokens that are pure punctuation are dropped.
func Tokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.Trim(f, ".,!?;:\"'()[]{}…—-")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// FillerStats is the result of [Fillers]: the total number of filler
// occurrences plus a per-expression breakdown. Expressions with zero
// occurrences are omitted from ByExpression.
type FillerStats struct {
	Total        int
	ByExpression map[string]int
}

// Fillers counts filler expressions in text, case-insensitively.
//
// Multi-word expressions ("you know", "kind of") match only as contiguous
// phrases. Within a single expression, matches never overlap: after a phrase
// match the scan advances past the matched tokens, so "kind of kind of"
// counts "kind of" twice but "of kind of" inside it is not counted again.
func Fillers(text string) FillerStats {
	tokens := Tokens(text)
	stats := FillerStats{ByExpression: make(map[string]int)}
	if len(tokens) == 0 {
		return stats
	}

	for _, expr := range fillerExpressions {
		parts := strings.Fields(expr)
		n := len(parts)
		for i := 0; i+n <= len(tokens); {
			if tokensMatch(tokens[i:i+n], parts) {
				stats.ByExpression[expr]++
				stats.Total++
				i += n
				continue
			}
			i++
		}
	}
	return stats
}

func tokensMatch(window, parts []string) bool {
	for i := range parts {
		if window[i] != parts[i] {
			return false
		}
	}
	return true
}

// LexicalDiversity returns the ratio of unique tokens to total tokens.
// Returns 0 for empty text.
func LexicalDiversity(text string) float64 {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		unique[t] = struct{}{}
	}
	return float64(len(unique)) / float64(len(tokens))
}

// repeatThreshold is the occurrence count at which an n-gram counts as
// repeated.
const repeatThreshold = 3

// NGramRepetition measures how much of the text consists of repeated bigrams
// and trigrams. The ratio is
//
//	(repeated bigrams + 2×repeated trigrams) / total distinct n-grams
//
// where an n-gram is repeated when it occurs at least three times. Trigram
// repetition is weighted double because a repeated three-word phrase is a
// much stronger signal of filler loops ("and then I and then I") than a
// repeated word pair. Returns 0 when the text has fewer than three tokens.
func NGramRepetition(text string) float64 {
	tokens := Tokens(text)
	if len(tokens) < 3 {
		return 0
	}

	bigrams := make(map[string]int)
	trigrams := make(map[string]int)
	for i := 0; i+2 <= len(tokens); i++ {
		bigrams[tokens[i]+" "+tokens[i+1]]++
	}
	for i := 0; i+3 <= len(tokens); i++ {
		trigrams[tokens[i]+" "+tokens[i+1]+" "+tokens[i+2]]++
	}

	var repeatedBi, repeatedTri int
	for _, c := range bigrams {
		if c >= repeatThreshold {
			repeatedBi++
		}
	}
	for _, c := range trigrams {
		if c >= repeatThreshold {
			repeatedTri++
		}
	}

	totalDistinct := len(bigrams) + len(trigrams)
	if totalDistinct == 0 {
		return 0
	}
	return float64(repeatedBi+2*repeatedTri) / float64(totalDistinct)
}
