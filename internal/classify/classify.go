// Package classify implements the deterministic transcript classification
// heuristics that run around the judge model call.
//
// Two classifiers live here:
//
//   - [Precheck] runs before any model call on the raw transcript plus the
//     assigned theme and quote. It can short-circuit the judge call entirely
//     (degenerate transcripts never reach the model) and always produces a
//     hard ceiling for the overall score.
//   - [Detect] runs after the audio duration is known and is used to
//     override the judge model's self-reported classification on the severe
//     categories. The model's own claim is advisory; the server detector is
//     authoritative for too_short and nonsense.
//
// Both are pure functions over strings and numbers, independent of any
// provider, and therefore trivially testable.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rostrum-ai/rostrum/internal/textmetrics"
)

// Classification labels the usability of a transcript for rubric grading.
type Classification string

const (
	Normal         Classification = "normal"
	TooShort       Classification = "too_short"
	Nonsense       Classification = "nonsense"
	OffTopic       Classification = "off_topic"
	MostlyOffTopic Classification = "mostly_off_topic"
)

// IsValid reports whether c is a recognised classification.
func (c Classification) IsValid() bool {
	switch c {
	case Normal, TooShort, Nonsense, OffTopic, MostlyOffTopic:
		return true
	}
	return false
}

// Severe reports whether c is one of the categories for which the server
// detector always overrides the judge model's self-report.
func (c Classification) Severe() bool {
	return c == TooShort || c == Nonsense
}

// MaxOverall returns the hard ceiling on the overall score implied by c.
func (c Classification) MaxOverall() float64 {
	switch c {
	case TooShort, Nonsense, OffTopic:
		return 2.5
	case MostlyOffTopic:
		return 6.0
	default:
		return 10.0
	}
}

// Thresholds for the pre-call rules, in rule order.
const (
	minWordsForJudge      = 25
	shortSpeechWords      = 75
	minDiversity          = 0.15
	maxRepetitionRatio    = 0.30
	maxNonWordRatio       = 0.20
	offTopicOverlap       = 0.10
	mostlyOffTopicOverlap = 0.25
	minTopicKeywords      = 3

	severeCap      = 2.5
	mostlyCap      = 6.0
	shortSpeechCap = 3.0
	noCap          = 10.0
)

// consonantRun matches tokens of five or more letters containing no vowel;
// keyboard mash rather than English.
var consonantRun = regexp.MustCompile(`^[^aeiou]{5,}$`)

// PrecheckResult is the outcome of the pre-call heuristic classification.
type PrecheckResult struct {
	Classification Classification

	// SkipJudge is set when the transcript is so degenerate that calling the
	// judge model would waste a request: the caller serves a capped analysis
	// without one.
	SkipJudge bool

	// MaxOverall is the ceiling re-applied by the rubric enforcer as the
	// final authority, regardless of what the judge later claims.
	MaxOverall float64

	// Reason explains which rule fired, for logs and diagnostics.
	Reason string
}

// Precheck evaluates the pre-call rules in strict priority order against the
// transcript and the topic material (theme and quote). The first matching
// rule wins.
func Precheck(transcript, theme, quote string) PrecheckResult {
	tokens := textmetrics.Tokens(transcript)
	words := textmetrics.WordCount(transcript)

	if words < minWordsForJudge {
		return PrecheckResult{TooShort, true, severeCap,
			fmt.Sprintf("only %d words", words)}
	}

	if len(tokens) > 50 {
		if div := textmetrics.LexicalDiversity(transcript); div < minDiversity {
			return PrecheckResult{Nonsense, true, severeCap,
				fmt.Sprintf("lexical diversity %.2f", div)}
		}
		if rep := textmetrics.NGramRepetition(transcript); rep > maxRepetitionRatio {
			return PrecheckResult{Nonsense, true, severeCap,
				fmt.Sprintf("n-gram repetition %.2f", rep)}
		}
	}

	if len(tokens) > 30 {
		if ratio := nonWordRatio(tokens); ratio > maxNonWordRatio {
			return PrecheckResult{Nonsense, true, severeCap,
				fmt.Sprintf("non-word ratio %.2f", ratio)}
		}
	}

	keywords := topicKeywords(theme, quote)
	if len(keywords) >= minTopicKeywords && len(tokens) > 50 {
		overlap := keywordOverlap(tokens, keywords)
		if overlap < offTopicOverlap {
			return PrecheckResult{OffTopic, true, severeCap,
				fmt.Sprintf("topic overlap %.2f", overlap)}
		}
		if overlap < mostlyOffTopicOverlap {
			return PrecheckResult{MostlyOffTopic, false, mostlyCap,
				fmt.Sprintf("topic overlap %.2f", overlap)}
		}
	}

	if words < shortSpeechWords {
		return PrecheckResult{Normal, false, shortSpeechCap,
			fmt.Sprintf("short speech, %d words", words)}
	}

	return PrecheckResult{Normal, false, noCap, ""}
}

// nonWordRatio returns the fraction of tokens that do not look like English
// words: vowel-free consonant runs, a single character repeated four or more
// times, or anything longer than 20 characters.
func nonWordRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var nonWords int
	for _, tok := range tokens {
		if isNonWord(tok) {
			nonWords++
		}
	}
	return float64(nonWords) / float64(len(tokens))
}

func isNonWord(tok string) bool {
	if len(tok) > 20 {
		return true
	}
	if consonantRun.MatchString(tok) {
		return true
	}
	if len(tok) >= 4 && strings.Count(tok, tok[:1]) == len(tok) {
		return true
	}
	return false
}

// stopWords are excluded from topic-keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "its": {}, "may": {}, "who": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "with": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "they": {}, "them": {}, "then": {},
	"than": {}, "their": {}, "there": {}, "from": {}, "have": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "about": {},
	"into": {}, "your": {}, "more": {}, "some": {}, "very": {},
	"just": {}, "also": {}, "because": {}, "been": {}, "being": {},
	"does": {}, "each": {}, "most": {}, "must": {}, "only": {},
	"other": {}, "over": {}, "same": {}, "such": {}, "were": {},
}

// topicKeywords extracts the content-bearing tokens from the theme and quote:
// stop words removed, tokens longer than two characters, deduplicated in
// first-seen order.
func topicKeywords(theme, quote string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, tok := range textmetrics.Tokens(theme + " " + quote) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// keywordOverlap scores how much of the topic vocabulary appears in the
// transcript. Exact token matches count 1.0, substring containment (either
// direction, e.g. "freedom"/"freedoms") counts 0.5, and the sum is divided
// by the number of topic keywords.
func keywordOverlap(transcriptTokens, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(transcriptTokens))
	for _, t := range transcriptTokens {
		set[t] = struct{}{}
	}

	var score float64
	for _, kw := range keywords {
		if _, ok := set[kw]; ok {
			score += 1.0
			continue
		}
		for t := range set {
			if len(t) > 2 && (strings.Contains(t, kw) || strings.Contains(kw, t)) {
				score += 0.5
				break
			}
		}
	}
	return score / float64(len(keywords))
}
