package rubric

import (
	"time"

	"github.com/rostrum-ai/rostrum/internal/classify"
)

// InsufficientSpeech builds the guarded analysis returned when no usable
// transcript or audio exists. Every score is fixed at 1.0 except filler
// words, which score 10.0 because zero fillers is the best possible outcome.
// The document is schema-complete so callers always receive a scoreable
// result, even in total failure of upstream speech.
func InsufficientSpeech(transcript string, duration time.Duration) *Analysis {
	const floor = 1.0

	metric := func(feedback string) Metric {
		return Metric{Score: floor, Feedback: feedback}
	}

	a := &Analysis{
		Classification:  classify.TooShort,
		CapsApplied:     true,
		OverallScore:    floor,
		PerformanceTier: TierDeveloping,
		TournamentReady: false,
		ContentAnalysis: ContentAnalysis{
			TopicAdherence:    metric("Not enough speech was captured to assess topic adherence."),
			ArgumentStructure: metric("No argument structure could be identified in the captured audio."),
			DepthOfAnalysis:   metric("Too little content was captured to evaluate depth."),
			ExamplesEvidence:  metric("No examples or evidence were captured."),
			TimeManagement:    metric("The recording contained far too little speech for the 4-7 minute format."),
		},
		DeliveryAnalysis: DeliveryAnalysis{
			VocalVariety: metric("Insufficient speech to assess vocal variety."),
			Pacing: PacingMetric{
				Score:    floor,
				Feedback: "Insufficient speech to assess pacing.",
			},
			Articulation: metric("Insufficient speech to assess articulation."),
			FillerWords: FillerMetric{
				Score:     10.0,
				Feedback:  "No filler words detected, though very little speech was captured.",
				Breakdown: map[string]int{},
			},
		},
		LanguageAnalysis: LanguageAnalysis{
			Vocabulary: metric("Insufficient speech to assess vocabulary."),
			RhetoricalDevices: RhetoricMetric{
				Score:    floor,
				Feedback: "No rhetorical devices could be identified.",
				Examples: []string{},
			},
			EmotionalAppeal: metric("Insufficient speech to assess emotional appeal."),
			LogicalAppeal:   metric("Insufficient speech to assess logical appeal."),
		},
		BodyLanguageAnalysis: BodyLanguageAnalysis{
			EyeContact: EyeContactMetric{
				Score:    floor,
				Feedback: "Insufficient footage to assess eye contact.",
			},
			Gestures:      metric("Insufficient footage to assess gestures."),
			Posture:       metric("Insufficient footage to assess posture."),
			StagePresence: metric("Insufficient footage to assess stage presence."),
		},
		StructureAnalysis: StructureAnalysis{
			Introduction: metric("No introduction was captured."),
			BodyPoints:   []string{},
			Conclusion:   metric("No conclusion was captured."),
		},
		Strengths: []string{
			"You stepped up to speak, which is the hardest part of impromptu speaking.",
		},
	}

	// Fixed category scores and weighted values follow from the floor.
	a.CategoryScores = CategoryScores{
		Content:      CategoryScore{Score: floor},
		Delivery:     CategoryScore{Score: floor},
		Language:     CategoryScore{Score: floor},
		BodyLanguage: CategoryScore{Score: floor},
	}
	recomputeWeighted(a)
	a.OverallScore = floor

	// Measured stats are still real, even for a degenerate recording.
	measured := measure(transcript, duration)
	a.SpeechStats = SpeechStats{
		WordCount:       measured.WordCount,
		DurationSeconds: round1(duration.Seconds()),
		WordsPerMinute:  measured.WordsPerMinute,
		FillerCount:     measured.FillerTotal,
		FillerPerMinute: measured.FillerPerMinute,
	}
	a.DeliveryAnalysis.Pacing.WPM = measured.WordsPerMinute
	a.DeliveryAnalysis.FillerWords.Total = measured.FillerTotal
	a.DeliveryAnalysis.FillerWords.PerMinute = measured.FillerPerMinute
	if measured.FillerBreakdown != nil {
		a.DeliveryAnalysis.FillerWords.Breakdown = measured.FillerBreakdown
	}

	SelectPriorities(a, duration)

	// The selector redirects the drill at the weakest sub-metric, which is
	// meaningless when every score sits at the floor. Completing a full
	// speech is the only useful drill here.
	a.PracticeDrill = "Record a full 4-minute practice speech on any familiar topic. " +
		"The goal this session is simply completing the time, not polish."
	a.NextSessionFocus = "Deliver a complete speech of at least 4 minutes so every rubric category can be assessed."

	return a
}
