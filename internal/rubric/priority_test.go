package rubric

import (
	"strings"
	"testing"
	"time"
)

// selectorAnalysis builds an enforced-looking analysis with measured stats
// already in place, so SelectPriorities can be exercised directly.
func selectorAnalysis(subScore, wpm, fillerRate float64, fillerTotal int, eyePct float64) *Analysis {
	a := uniformAnalysis(subScore, eyePct)
	a.DeliveryAnalysis.Pacing.WPM = wpm
	a.DeliveryAnalysis.FillerWords.Total = fillerTotal
	a.DeliveryAnalysis.FillerWords.PerMinute = fillerRate
	return a
}

func TestSelectPrioritiesExactlyThree(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(5, 150, 5, 20, 60)
	SelectPriorities(a, 300*time.Second)

	if got := len(a.PriorityImprovements); got != 3 {
		t.Fatalf("len(priorityImprovements) = %d, want 3", got)
	}
	for i, item := range a.PriorityImprovements {
		if item.Priority != i+1 {
			t.Errorf("item %d priority = %d, want %d", i, item.Priority, i+1)
		}
		if item.Issue == "" || item.Action == "" || item.Impact == "" {
			t.Errorf("item %d has empty fields: %+v", i, item)
		}
	}
}

func TestSelectPrioritiesForcesLengthItemFirst(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(8, 150, 5, 20, 80)
	a.PriorityImprovements = []PriorityImprovement{
		{Priority: 1, Issue: "Arguments need more depth", Action: "Add a why layer", Impact: "Higher content score"},
	}
	SelectPriorities(a, 100*time.Second)

	if len(a.PriorityImprovements) == 0 {
		t.Fatal("no priority improvements selected")
	}
	first := a.PriorityImprovements[0]
	if first.Priority != 1 || !strings.Contains(strings.ToLower(first.Issue), "short") {
		t.Errorf("first item = %+v, want forced length item at priority 1", first)
	}
}

func TestSelectPrioritiesSuppressesFillerAdvice(t *testing.T) {
	t.Parallel()

	// Filler words are the weakest sub-metric, but the measured rate is
	// under 3 per minute, so no filler recommendation may appear.
	a := selectorAnalysis(8, 150, 1.5, 4, 80)
	a.DeliveryAnalysis.FillerWords.Score = 2
	a.PriorityImprovements = []PriorityImprovement{
		{Priority: 1, Issue: "Too many filler words break your flow", Action: "Pause instead of saying um", Impact: "Cleaner delivery"},
	}
	SelectPriorities(a, 300*time.Second)

	for _, item := range a.PriorityImprovements {
		if strings.Contains(strings.ToLower(item.Issue), "filler") {
			t.Errorf("filler recommendation survived suppression: %+v", item)
		}
	}
}

func TestSelectPrioritiesSuppressesEyeContactWhenHigh(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(8, 150, 5, 20, 90)
	a.BodyLanguageAnalysis.EyeContact.Score = 2
	SelectPriorities(a, 300*time.Second)

	for _, item := range a.PriorityImprovements {
		lower := strings.ToLower(item.Issue + " " + item.Action)
		if strings.Contains(lower, "eye contact") || strings.Contains(lower, "gaze") {
			t.Errorf("eye-contact recommendation with 90%% measured contact: %+v", item)
		}
	}
}

func TestSelectPrioritiesKeepsValidModelItems(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(8, 150, 5, 20, 60)
	modelIssue := "Your second argument contradicted your first"
	a.PriorityImprovements = []PriorityImprovement{
		{Priority: 2, Issue: modelIssue, Action: "Map your arguments before speaking", Impact: "Consistency builds credibility"},
		{Priority: 3, Issue: "", Action: "incomplete item", Impact: ""},
	}
	SelectPriorities(a, 300*time.Second)

	found := false
	for _, item := range a.PriorityImprovements {
		if item.Issue == modelIssue {
			found = true
		}
		if item.Action == "incomplete item" {
			t.Errorf("incomplete model item kept: %+v", item)
		}
	}
	if !found {
		t.Error("valid model-provided item was dropped")
	}
}

func TestSelectPrioritiesDedupesSimilarItems(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(8, 150, 5, 20, 60)
	a.PriorityImprovements = []PriorityImprovement{
		{Priority: 1, Issue: "Speech drifted away from the assigned theme", Action: "Tie points to the theme", Impact: "Better adherence"},
		{Priority: 2, Issue: "Speech drifted away from the assigned themes", Action: "Tie points back", Impact: "Better adherence score"},
	}
	SelectPriorities(a, 300*time.Second)

	seen := 0
	for _, item := range a.PriorityImprovements {
		if strings.Contains(item.Issue, "drifted away from the assigned theme") {
			seen++
		}
	}
	if seen > 1 {
		t.Errorf("near-duplicate issues both selected (%d occurrences)", seen)
	}
}

func TestSelectPrioritiesFillsFromWeakestSubMetrics(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(8, 150, 5, 20, 60)
	a.ContentAnalysis.DepthOfAnalysis.Score = 2
	SelectPriorities(a, 300*time.Second)

	found := false
	for _, item := range a.PriorityImprovements {
		if item.Issue == subMetricTemplates[SubDepthOfAnalysis].issue {
			found = true
		}
	}
	if !found {
		t.Errorf("weakest sub-metric template not selected: %+v", a.PriorityImprovements)
	}
}

func TestSelectPrioritiesDrillTargetsWeakestSubMetric(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(8, 150, 5, 20, 60)
	a.LanguageAnalysis.Vocabulary.Score = 4
	a.PracticeDrill = "model drill"
	a.NextSessionFocus = "model focus"
	SelectPriorities(a, 300*time.Second)

	if !strings.Contains(a.PracticeDrill, "vocabulary") {
		t.Errorf("practiceDrill = %q, want weakest sub-metric named", a.PracticeDrill)
	}
	if !strings.Contains(a.NextSessionFocus, "5.0") {
		t.Errorf("nextSessionFocus = %q, want numeric target one point higher", a.NextSessionFocus)
	}
}

func TestSelectPrioritiesDrillUntouchedWhenAllStrong(t *testing.T) {
	t.Parallel()

	a := selectorAnalysis(8.5, 150, 5, 20, 60)
	a.PracticeDrill = "model drill"
	a.NextSessionFocus = "model focus"
	SelectPriorities(a, 300*time.Second)

	if a.PracticeDrill != "model drill" || a.NextSessionFocus != "model focus" {
		t.Errorf("drill fields overwritten with no sub-metric below 7.0: %q / %q", a.PracticeDrill, a.NextSessionFocus)
	}
}
