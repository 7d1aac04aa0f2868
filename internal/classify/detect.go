package classify

import (
	"time"

	"github.com/rostrum-ai/rostrum/internal/textmetrics"
)

// Detect thresholds. These are deliberately coarser than the precheck rules:
// the detector runs once the real audio duration is known and only needs to
// catch cases severe enough to override the judge model's self-report.
const (
	detectMinDuration = 60 * time.Second
	detectMinWords    = 100

	detectMinUniqueRatio = 0.20

	// A word appearing three times in a row ("go go go") is an immediate
	// repetition; three or more such runs mark the transcript as nonsense
	// unless discourse connectives suggest real argumentation.
	detectRunLength = 3
	detectMaxRuns   = 3

	// overRepeated marks a single word used more than this many times.
	overRepeated         = 5
	overRepeatedFraction = 0.30
)

// discourseConnectives are words that essentially never appear in keyboard
// mash or looped filler. Their presence vetoes the repetition-based nonsense
// rules.
var discourseConnectives = []string{
	"because", "therefore", "however", "although", "moreover",
	"furthermore", "consequently", "meanwhile", "nevertheless",
	"specifically", "instead", "finally", "firstly", "secondly",
}

// Detect is the coarse duration-aware classifier used to validate the judge
// model's self-reported classification. It only ever returns [TooShort],
// [Nonsense], or [Normal]; finer categories are left to the precheck rules
// and the model.
func Detect(transcript string, duration time.Duration) Classification {
	words := textmetrics.WordCount(transcript)
	if duration < detectMinDuration || words < detectMinWords {
		return TooShort
	}

	tokens := textmetrics.Tokens(transcript)
	if looksLikeNonsense(tokens) {
		return Nonsense
	}
	return Normal
}

// Reconcile merges the server-detected classification with the judge model's
// self-report. The server wins on the severe categories (too_short,
// nonsense); otherwise the model's report is used when it is a valid label,
// falling back to the detector's verdict.
func Reconcile(detected Classification, modelReported Classification) Classification {
	if detected.Severe() {
		return detected
	}
	if modelReported.IsValid() {
		return modelReported
	}
	return detected
}

func looksLikeNonsense(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}

	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	uniqueRatio := float64(len(freq)) / float64(len(tokens))
	if uniqueRatio < detectMinUniqueRatio && len(tokens) > detectMinWords {
		return true
	}

	if hasConnectives(freq) {
		return false
	}

	// Count runs of the same word repeated detectRunLength times in a row.
	var runs int
	streak := 1
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == tokens[i-1] {
			streak++
			if streak == detectRunLength {
				runs++
			}
		} else {
			streak = 1
		}
	}
	if runs >= detectMaxRuns {
		return true
	}

	var over int
	for _, c := range freq {
		if c > overRepeated {
			over++
		}
	}
	return float64(over)/float64(len(freq)) > overRepeatedFraction
}

func hasConnectives(freq map[string]int) bool {
	for _, c := range discourseConnectives {
		if freq[c] > 0 {
			return true
		}
	}
	return false
}
