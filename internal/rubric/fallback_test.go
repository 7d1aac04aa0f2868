package rubric

import (
	"strings"
	"testing"
	"time"

	"github.com/rostrum-ai/rostrum/internal/classify"
)

func TestInsufficientSpeech(t *testing.T) {
	t.Parallel()

	a := InsufficientSpeech("um hello", 8*time.Second)

	if a.Classification != classify.TooShort {
		t.Errorf("classification = %q, want too_short", a.Classification)
	}
	if !a.CapsApplied {
		t.Error("capsApplied = false, want true")
	}
	if !almostEqual(a.OverallScore, 1.0) {
		t.Errorf("overall = %v, want 1.0", a.OverallScore)
	}
	if a.TournamentReady {
		t.Error("tournamentReady = true, want false")
	}
	if a.PerformanceTier != TierDeveloping {
		t.Errorf("performanceTier = %q, want %q", a.PerformanceTier, TierDeveloping)
	}

	for _, s := range a.subMetricScores() {
		switch s {
		case &a.DeliveryAnalysis.FillerWords.Score:
			if !almostEqual(*s, 10.0) {
				t.Errorf("fillerWords score = %v, want 10.0 (zero fillers is good)", *s)
			}
		default:
			if !almostEqual(*s, 1.0) {
				t.Errorf("sub-metric score = %v, want 1.0", *s)
			}
		}
	}
}

func TestInsufficientSpeechIsSchemaComplete(t *testing.T) {
	t.Parallel()

	a := InsufficientSpeech("", 0)

	feedbacks := []string{
		a.ContentAnalysis.TopicAdherence.Feedback,
		a.ContentAnalysis.TimeManagement.Feedback,
		a.DeliveryAnalysis.Pacing.Feedback,
		a.DeliveryAnalysis.FillerWords.Feedback,
		a.LanguageAnalysis.RhetoricalDevices.Feedback,
		a.BodyLanguageAnalysis.EyeContact.Feedback,
		a.StructureAnalysis.Introduction.Feedback,
	}
	for i, fb := range feedbacks {
		if fb == "" {
			t.Errorf("feedback %d is empty, want populated document", i)
		}
	}
	if len(a.Strengths) == 0 {
		t.Error("strengths empty, want at least one entry")
	}
	if a.PracticeDrill == "" || a.NextSessionFocus == "" {
		t.Error("practice drill / next-session focus empty")
	}
	if len(a.PriorityImprovements) == 0 {
		t.Fatal("no priority improvements in fallback document")
	}
	first := a.PriorityImprovements[0]
	if first.Priority != 1 || !strings.Contains(strings.ToLower(first.Issue), "minute") {
		t.Errorf("first improvement = %+v, want length item first", first)
	}
}

func TestInsufficientSpeechMeasuredStats(t *testing.T) {
	t.Parallel()

	a := InsufficientSpeech("one two three four five", 30*time.Second)

	if a.SpeechStats.WordCount != 5 {
		t.Errorf("wordCount = %d, want 5", a.SpeechStats.WordCount)
	}
	if !almostEqual(a.SpeechStats.DurationSeconds, 30) {
		t.Errorf("durationSeconds = %v, want 30", a.SpeechStats.DurationSeconds)
	}
	if !almostEqual(a.SpeechStats.WordsPerMinute, 10) {
		t.Errorf("wordsPerMinute = %v, want 10", a.SpeechStats.WordsPerMinute)
	}
}
