// Package rubric holds the judge response schema and the deterministic
// pipeline that turns the model's raw analysis into a bounded, internally
// consistent result: scale normalization, category recomputation, length
// penalties, classification caps, the tournament-readiness gate, and
// priority-improvement selection.
//
// The schema is fully typed, one record type per analysis section, and the
// normalizer walks an explicit list of score-bearing fields instead of
// reflecting over an untyped JSON tree. The sub-metrics feeding each category
// average are therefore a compile-time-checked list, not duck-typed field
// access.
package rubric

import "github.com/rostrum-ai/rostrum/internal/classify"

// Fixed category weights. The model's self-reported weights are always
// overwritten with these.
const (
	WeightContent      = 0.40
	WeightDelivery     = 0.30
	WeightLanguage     = 0.15
	WeightBodyLanguage = 0.15
)

// Analysis is the judge response schema after decoding.
type Analysis struct {
	Classification  classify.Classification `json:"classification"`
	CapsApplied     bool                    `json:"capsApplied"`
	OverallScore    float64                 `json:"overallScore"`
	PerformanceTier string                  `json:"performanceTier"`
	TournamentReady bool                    `json:"tournamentReady"`

	CategoryScores       CategoryScores       `json:"categoryScores"`
	ContentAnalysis      ContentAnalysis      `json:"contentAnalysis"`
	DeliveryAnalysis     DeliveryAnalysis     `json:"deliveryAnalysis"`
	LanguageAnalysis     LanguageAnalysis     `json:"languageAnalysis"`
	BodyLanguageAnalysis BodyLanguageAnalysis `json:"bodyLanguageAnalysis"`
	SpeechStats          SpeechStats          `json:"speechStats"`
	StructureAnalysis    StructureAnalysis    `json:"structureAnalysis"`

	PriorityImprovements []PriorityImprovement `json:"priorityImprovements"`
	Strengths            []string              `json:"strengths"`
	PracticeDrill        string                `json:"practiceDrill"`
	NextSessionFocus     string                `json:"nextSessionFocus"`
}

// CategoryScore is one weighted rubric category.
type CategoryScore struct {
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// CategoryScores holds the four rubric categories.
type CategoryScores struct {
	Content      CategoryScore `json:"content"`
	Delivery     CategoryScore `json:"delivery"`
	Language     CategoryScore `json:"language"`
	BodyLanguage CategoryScore `json:"bodyLanguage"`
}

// Metric is a scored sub-metric with freeform feedback.
type Metric struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// ContentAnalysis covers what was said.
type ContentAnalysis struct {
	TopicAdherence    Metric `json:"topicAdherence"`
	ArgumentStructure Metric `json:"argumentStructure"`
	DepthOfAnalysis   Metric `json:"depthOfAnalysis"`
	ExamplesEvidence  Metric `json:"examplesEvidence"`
	TimeManagement    Metric `json:"timeManagement"`
}

// PacingMetric carries the measured words-per-minute alongside the score.
type PacingMetric struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	WPM      float64 `json:"wpm"`
}

// FillerMetric carries measured filler-word counts alongside the score.
type FillerMetric struct {
	Score     float64        `json:"score"`
	Feedback  string         `json:"feedback"`
	Total     int            `json:"total"`
	PerMinute float64        `json:"perMinute"`
	Breakdown map[string]int `json:"breakdown"`
}

// DeliveryAnalysis covers how it was said.
type DeliveryAnalysis struct {
	VocalVariety Metric       `json:"vocalVariety"`
	Pacing       PacingMetric `json:"pacing"`
	Articulation Metric       `json:"articulation"`
	FillerWords  FillerMetric `json:"fillerWords"`
}

// RhetoricMetric lists examples the judge spotted alongside the score.
type RhetoricMetric struct {
	Score    float64  `json:"score"`
	Feedback string   `json:"feedback"`
	Examples []string `json:"examples"`
}

// LanguageAnalysis covers word choice and persuasion.
type LanguageAnalysis struct {
	Vocabulary        Metric         `json:"vocabulary"`
	RhetoricalDevices RhetoricMetric `json:"rhetoricalDevices"`
	EmotionalAppeal   Metric         `json:"emotionalAppeal"`
	LogicalAppeal     Metric         `json:"logicalAppeal"`
}

// EyeContactMetric carries the estimated camera-contact percentage.
type EyeContactMetric struct {
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
	Percentage float64 `json:"percentage"`
}

// BodyLanguageAnalysis covers the visual channel.
type BodyLanguageAnalysis struct {
	EyeContact    EyeContactMetric `json:"eyeContact"`
	Gestures      Metric           `json:"gestures"`
	Posture       Metric           `json:"posture"`
	StagePresence Metric           `json:"stagePresence"`
}

// SpeechStats are the measured delivery statistics. They are always
// recomputed server-side from the transcript and actual duration; the model's
// self-reported values are never trusted for display.
type SpeechStats struct {
	WordCount       int     `json:"wordCount"`
	DurationSeconds float64 `json:"durationSeconds"`
	WordsPerMinute  float64 `json:"wordsPerMinute"`
	FillerCount     int     `json:"fillerCount"`
	FillerPerMinute float64 `json:"fillerPerMinute"`
}

// StructureAnalysis describes the speech's shape.
type StructureAnalysis struct {
	Introduction Metric   `json:"introduction"`
	BodyPoints   []string `json:"bodyPoints"`
	Conclusion   Metric   `json:"conclusion"`
}

// PriorityImprovement is one ranked improvement item shown to the learner.
type PriorityImprovement struct {
	Priority int    `json:"priority"`
	Issue    string `json:"issue"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
}

// scoreFields returns pointers to every score-bearing field in the analysis,
// including the category scores and overall. This is the complete traversal
// surface for scale normalization; adding a schema section means adding its
// scores here.
func (a *Analysis) scoreFields() []*float64 {
	return []*float64{
		&a.OverallScore,
		&a.CategoryScores.Content.Score,
		&a.CategoryScores.Delivery.Score,
		&a.CategoryScores.Language.Score,
		&a.CategoryScores.BodyLanguage.Score,
		&a.ContentAnalysis.TopicAdherence.Score,
		&a.ContentAnalysis.ArgumentStructure.Score,
		&a.ContentAnalysis.DepthOfAnalysis.Score,
		&a.ContentAnalysis.ExamplesEvidence.Score,
		&a.ContentAnalysis.TimeManagement.Score,
		&a.DeliveryAnalysis.VocalVariety.Score,
		&a.DeliveryAnalysis.Pacing.Score,
		&a.DeliveryAnalysis.Articulation.Score,
		&a.DeliveryAnalysis.FillerWords.Score,
		&a.LanguageAnalysis.Vocabulary.Score,
		&a.LanguageAnalysis.RhetoricalDevices.Score,
		&a.LanguageAnalysis.EmotionalAppeal.Score,
		&a.LanguageAnalysis.LogicalAppeal.Score,
		&a.BodyLanguageAnalysis.EyeContact.Score,
		&a.BodyLanguageAnalysis.Gestures.Score,
		&a.BodyLanguageAnalysis.Posture.Score,
		&a.BodyLanguageAnalysis.StagePresence.Score,
		&a.StructureAnalysis.Introduction.Score,
		&a.StructureAnalysis.Conclusion.Score,
	}
}

// subMetricScores returns pointers to every displayed sub-metric score,
// excluding the category and overall aggregates. Classification caps apply
// to these.
func (a *Analysis) subMetricScores() []*float64 {
	return []*float64{
		&a.ContentAnalysis.TopicAdherence.Score,
		&a.ContentAnalysis.ArgumentStructure.Score,
		&a.ContentAnalysis.DepthOfAnalysis.Score,
		&a.ContentAnalysis.ExamplesEvidence.Score,
		&a.ContentAnalysis.TimeManagement.Score,
		&a.DeliveryAnalysis.VocalVariety.Score,
		&a.DeliveryAnalysis.Pacing.Score,
		&a.DeliveryAnalysis.Articulation.Score,
		&a.DeliveryAnalysis.FillerWords.Score,
		&a.LanguageAnalysis.Vocabulary.Score,
		&a.LanguageAnalysis.RhetoricalDevices.Score,
		&a.LanguageAnalysis.EmotionalAppeal.Score,
		&a.LanguageAnalysis.LogicalAppeal.Score,
		&a.BodyLanguageAnalysis.EyeContact.Score,
		&a.BodyLanguageAnalysis.Gestures.Score,
		&a.BodyLanguageAnalysis.Posture.Score,
		&a.BodyLanguageAnalysis.StagePresence.Score,
		&a.StructureAnalysis.Introduction.Score,
		&a.StructureAnalysis.Conclusion.Score,
	}
}

// contentSubMetricScores returns pointers to the content-section sub-metric
// scores. The mostly_off_topic cap applies to these.
func (a *Analysis) contentSubMetricScores() []*float64 {
	return []*float64{
		&a.ContentAnalysis.TopicAdherence.Score,
		&a.ContentAnalysis.ArgumentStructure.Score,
		&a.ContentAnalysis.DepthOfAnalysis.Score,
		&a.ContentAnalysis.ExamplesEvidence.Score,
		&a.ContentAnalysis.TimeManagement.Score,
	}
}
