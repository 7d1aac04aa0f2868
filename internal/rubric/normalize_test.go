package rubric

import (
	"math"
	"testing"
)

// uniformAnalysis builds an analysis with every sub-metric score set to v and
// the eye-contact percentage set to pct, leaving aggregates for the pipeline
// to fill.
func uniformAnalysis(v, pct float64) *Analysis {
	a := &Analysis{}
	for _, s := range a.subMetricScores() {
		*s = v
	}
	a.BodyLanguageAnalysis.EyeContact.Percentage = pct
	return a
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizeHundredScale(t *testing.T) {
	t.Parallel()

	a := uniformAnalysis(82, 85)
	a.OverallScore = 82
	Normalize(a)

	if got := a.ContentAnalysis.TopicAdherence.Score; !almostEqual(got, 8.2) {
		t.Errorf("topicAdherence = %v, want 8.2", got)
	}
	if got := a.BodyLanguageAnalysis.EyeContact.Percentage; !almostEqual(got, 85) {
		t.Errorf("eyeContact percentage = %v, want 85 unchanged", got)
	}
}

func TestNormalizeFractionalScale(t *testing.T) {
	t.Parallel()

	a := uniformAnalysis(0.85, 0.6)
	Normalize(a)

	if got := a.DeliveryAnalysis.VocalVariety.Score; !almostEqual(got, 8.5) {
		t.Errorf("vocalVariety = %v, want 8.5", got)
	}
	if got := a.BodyLanguageAnalysis.EyeContact.Percentage; !almostEqual(got, 60) {
		t.Errorf("eyeContact percentage = %v, want 60", got)
	}
}

func TestNormalizeCanonicalScaleUnchanged(t *testing.T) {
	t.Parallel()

	a := uniformAnalysis(8.5, 72)
	Normalize(a)

	if got := a.LanguageAnalysis.Vocabulary.Score; !almostEqual(got, 8.5) {
		t.Errorf("vocabulary = %v, want 8.5 unchanged", got)
	}
}

func TestNormalizeOverwritesWeights(t *testing.T) {
	t.Parallel()

	a := uniformAnalysis(8, 70)
	// Model supplied equal weights and bogus weighted values.
	a.CategoryScores = CategoryScores{
		Content:      CategoryScore{Score: 8, Weight: 0.25, Weighted: 99},
		Delivery:     CategoryScore{Score: 6, Weight: 0.25, Weighted: 99},
		Language:     CategoryScore{Score: 4, Weight: 0.25, Weighted: 99},
		BodyLanguage: CategoryScore{Score: 2, Weight: 0.25, Weighted: 99},
	}
	Normalize(a)

	cs := a.CategoryScores
	if cs.Content.Weight != WeightContent || cs.Delivery.Weight != WeightDelivery ||
		cs.Language.Weight != WeightLanguage || cs.BodyLanguage.Weight != WeightBodyLanguage {
		t.Errorf("weights = %+v, want fixed rubric weights", cs)
	}
	if !almostEqual(cs.Content.Weighted, 3.2) {
		t.Errorf("content weighted = %v, want 3.2", cs.Content.Weighted)
	}
	wantOverall := round1(cs.Content.Weighted + cs.Delivery.Weighted + cs.Language.Weighted + cs.BodyLanguage.Weighted)
	if !almostEqual(a.OverallScore, wantOverall) {
		t.Errorf("overall = %v, want weighted sum %v", a.OverallScore, wantOverall)
	}
}

func TestNormalizeClampsOutOfRange(t *testing.T) {
	t.Parallel()

	a := uniformAnalysis(8, 150)
	a.ContentAnalysis.TopicAdherence.Score = -3
	Normalize(a)

	if got := a.ContentAnalysis.TopicAdherence.Score; got != 0 {
		t.Errorf("negative score normalized to %v, want 0", got)
	}
	if got := a.BodyLanguageAnalysis.EyeContact.Percentage; got != 100 {
		t.Errorf("percentage = %v, want clamped 100", got)
	}
}

func TestDetectScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		max  float64
		want float64
	}{
		{85, 0.1},
		{10.5, 0.1},
		{8.5, 1},
		{1.3, 1},
		{1.2, 10},
		{0.85, 10},
		{0, 10},
	}
	for _, tt := range tests {
		if got := detectScale(tt.max); !almostEqual(got, tt.want) {
			t.Errorf("detectScale(%v) = %v, want %v", tt.max, got, tt.want)
		}
	}
}
