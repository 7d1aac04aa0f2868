package rubric

import (
	"fmt"
	"strings"
	"time"

	"github.com/rostrum-ai/rostrum/internal/classify"
	"github.com/rostrum-ai/rostrum/internal/textmetrics"
)

// Performance tier labels, derived from the overall score.
const (
	TierFinals      = "Finals"
	TierBreaking    = "Breaking"
	TierCompetitive = "Competitive"
	TierDeveloping  = "Developing"
)

// Tournament readiness gate thresholds.
const (
	readyMinOverall     = 7.5
	readyMinCategory    = 7.0
	readyMinDurationSec = 240
	readyMaxDurationSec = 420
	readyMaxFillerRate  = 8.0
	readyMinEyeContact  = 50.0
)

// Length penalty notes appended to the time-management feedback. Their
// presence also guards the sub-metric deduction against double application.
const (
	noteVeryShort = "Speech was well under the 4-minute minimum; content depth is limited by the short runtime."
	noteShort     = "Speech fell short of the 4-minute minimum, which limits how fully arguments can develop."
	noteOverTime  = "Speech ran over the 7-minute limit; tighter time management is expected in competition."
)

// Enforcement carries the measured facts the enforcer trusts over the
// model's self-reported values.
type Enforcement struct {
	// Classification is the reconciled final classification (server
	// detection already applied). The enforcer writes it into the analysis
	// and applies its caps regardless of what the model claimed.
	Classification classify.Classification

	// PrecheckCap is the ceiling decided before the judge call. 10 means
	// no cap.
	PrecheckCap float64

	// Duration is the measured speech duration.
	Duration time.Duration

	// Transcript is the final transcript; word and filler statistics are
	// recomputed from it.
	Transcript string
}

// Measured holds the server-side delivery statistics derived from the
// transcript and actual duration.
type Measured struct {
	WordCount       int
	WordsPerMinute  float64
	FillerTotal     int
	FillerPerMinute float64
	FillerBreakdown map[string]int
}

// measure computes the trusted delivery statistics.
func measure(transcript string, duration time.Duration) Measured {
	m := Measured{WordCount: textmetrics.WordCount(transcript)}
	fillers := textmetrics.Fillers(transcript)
	m.FillerTotal = fillers.Total
	m.FillerBreakdown = fillers.ByExpression

	if min := duration.Minutes(); min > 0 {
		m.WordsPerMinute = round1(float64(m.WordCount) / min)
		m.FillerPerMinute = round1(float64(m.FillerTotal) / min)
	}
	return m
}

// Enforce applies the deterministic rubric corrections to a, in place, in
// fixed order: category recompute from sub-metrics, length penalty,
// classification caps, the pre-check ceiling, the tournament-readiness gate,
// and the measured-stat override. Run it after [Normalize].
//
// Enforce is idempotent: a second run on an already-enforced analysis
// produces no further change.
func Enforce(a *Analysis, env Enforcement) {
	measured := measure(env.Transcript, env.Duration)
	secs := env.Duration.Seconds()

	// 1. Category scores become pure averages of their declared
	// sub-metrics; weighted values and overall follow.
	recomputeCategories(a)

	// 2. Length penalty. Short speeches deduct from overall (so category
	// math stays a pure average); overlong speeches deduct from the
	// time-management sub-metric. The feedback note doubles as the
	// already-applied marker for the sub-metric deduction.
	switch {
	case secs < 180:
		a.OverallScore = clamp(round1(a.OverallScore-0.8), 0, 10)
		appendNote(&a.ContentAnalysis.TimeManagement.Feedback, noteVeryShort)
	case secs < 240:
		a.OverallScore = clamp(round1(a.OverallScore-0.4), 0, 10)
		appendNote(&a.ContentAnalysis.TimeManagement.Feedback, noteShort)
	case secs > readyMaxDurationSec:
		tm := &a.ContentAnalysis.TimeManagement
		if appendNote(&tm.Feedback, noteOverTime) {
			tm.Score = clamp(round1(tm.Score-0.5), 0, 10)
		}
	}

	// 3. Classification caps, re-applied as final authority even when the
	// model already self-capped. Capped sub-metrics feed back into the
	// category averages so the displayed aggregates stay consistent.
	a.Classification = env.Classification
	switch env.Classification {
	case classify.TooShort, classify.Nonsense, classify.OffTopic:
		capped := capAll(a.subMetricScores(), 3.0)
		if capped {
			recomputeCategoriesKeepOverallPenalty(a, secs)
		}
		if capValue(&a.OverallScore, 2.5) || capped {
			a.CapsApplied = true
		}
	case classify.MostlyOffTopic:
		capped := capAll(a.contentSubMetricScores(), 5.0)
		if capped {
			recomputeCategoriesKeepOverallPenalty(a, secs)
		}
		if capValue(&a.OverallScore, 6.0) || capped {
			a.CapsApplied = true
		}
	}

	// 4. The pre-check ceiling always wins if lower, independent of what
	// classification the judge produced.
	if capValue(&a.OverallScore, env.PrecheckCap) {
		a.CapsApplied = true
	}

	// 5. Tournament readiness and tier. The gate reads measured stats, not
	// the model's self-reported ones.
	cs := a.CategoryScores
	minCategory := cs.Content.Score
	for _, s := range []float64{cs.Delivery.Score, cs.Language.Score, cs.BodyLanguage.Score} {
		if s < minCategory {
			minCategory = s
		}
	}
	a.TournamentReady = a.OverallScore >= readyMinOverall &&
		minCategory >= readyMinCategory &&
		secs >= readyMinDurationSec && secs <= readyMaxDurationSec &&
		measured.FillerPerMinute < readyMaxFillerRate &&
		a.BodyLanguageAnalysis.EyeContact.Percentage > readyMinEyeContact
	a.PerformanceTier = tierFor(a.OverallScore)

	// 6. Measured-stat override: the model's self-reported delivery
	// numbers are never trusted for display.
	a.SpeechStats = SpeechStats{
		WordCount:       measured.WordCount,
		DurationSeconds: round1(secs),
		WordsPerMinute:  measured.WordsPerMinute,
		FillerCount:     measured.FillerTotal,
		FillerPerMinute: measured.FillerPerMinute,
	}
	a.DeliveryAnalysis.Pacing.WPM = measured.WordsPerMinute
	a.DeliveryAnalysis.FillerWords.Total = measured.FillerTotal
	a.DeliveryAnalysis.FillerWords.PerMinute = measured.FillerPerMinute
	a.DeliveryAnalysis.FillerWords.Breakdown = measured.FillerBreakdown
}

// recomputeCategories sets each category score to the average of its
// declared sub-metrics and recomputes weighted values and overall. The
// sub-metric subsets are deliberately narrower than each category's full
// displayed list, matching what the presentation layer surfaces.
func recomputeCategories(a *Analysis) {
	a.CategoryScores.Content.Score = avg(
		a.ContentAnalysis.TopicAdherence.Score,
		a.ContentAnalysis.ArgumentStructure.Score,
		a.ContentAnalysis.DepthOfAnalysis.Score,
	)
	a.CategoryScores.Delivery.Score = avg(
		a.DeliveryAnalysis.VocalVariety.Score,
		a.DeliveryAnalysis.Pacing.Score,
	)
	a.CategoryScores.Language.Score = avg(
		a.LanguageAnalysis.Vocabulary.Score,
		a.LanguageAnalysis.RhetoricalDevices.Score,
	)
	a.CategoryScores.BodyLanguage.Score = avg(
		a.BodyLanguageAnalysis.EyeContact.Score,
		a.BodyLanguageAnalysis.Gestures.Score,
	)
	recomputeWeighted(a)
}

// recomputeCategoriesKeepOverallPenalty refreshes the category aggregates
// after a cap changed sub-metric scores, then re-applies the short-speech
// overall deduction that the recompute would otherwise erase.
func recomputeCategoriesKeepOverallPenalty(a *Analysis, secs float64) {
	recomputeCategories(a)
	switch {
	case secs < 180:
		a.OverallScore = clamp(round1(a.OverallScore-0.8), 0, 10)
	case secs < 240:
		a.OverallScore = clamp(round1(a.OverallScore-0.4), 0, 10)
	}
}

func avg(vals ...float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return round1(sum / float64(len(vals)))
}

// capValue lowers *v to max when it exceeds it, reporting whether a
// reduction happened.
func capValue(v *float64, max float64) bool {
	if *v > max {
		*v = max
		return true
	}
	return false
}

// capAll caps every score in vs, reporting whether any was reduced.
func capAll(vs []*float64, max float64) bool {
	reduced := false
	for _, v := range vs {
		if capValue(v, max) {
			reduced = true
		}
	}
	return reduced
}

// appendNote appends note to *feedback unless already present, reporting
// whether it was added. The presence check makes penalties that mutate
// sub-metric scores safe to re-run.
func appendNote(feedback *string, note string) bool {
	if strings.Contains(*feedback, note) {
		return false
	}
	if *feedback == "" {
		*feedback = note
	} else {
		*feedback = fmt.Sprintf("%s %s", strings.TrimSpace(*feedback), note)
	}
	return true
}

// tierFor maps an overall score to its performance tier.
func tierFor(overall float64) string {
	switch {
	case overall >= 9.0:
		return TierFinals
	case overall >= 8.0:
		return TierBreaking
	case overall >= 7.7:
		return TierCompetitive
	default:
		return TierDeveloping
	}
}
