package rubric

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// maxPriorityItems is the number of ranked improvement items shown to the
// learner.
const maxPriorityItems = 3

// dupSimilarity is the Jaro-Winkler score above which two issue texts are
// treated as the same improvement. Model phrasing rarely matches template
// phrasing exactly, so exact string comparison would let near-duplicates
// through.
const dupSimilarity = 0.85

// drillTargetThreshold is the sub-metric score below which the practice
// drill and next-session focus are redirected at the weakest sub-metric.
const drillTargetThreshold = 7.0

// SubMetric identifies one displayed rubric sub-metric.
type SubMetric string

const (
	SubTopicAdherence    SubMetric = "topicAdherence"
	SubArgumentStructure SubMetric = "argumentStructure"
	SubDepthOfAnalysis   SubMetric = "depthOfAnalysis"
	SubExamplesEvidence  SubMetric = "examplesEvidence"
	SubTimeManagement    SubMetric = "timeManagement"
	SubVocalVariety      SubMetric = "vocalVariety"
	SubPacing            SubMetric = "pacing"
	SubArticulation      SubMetric = "articulation"
	SubFillerWords       SubMetric = "fillerWords"
	SubVocabulary        SubMetric = "vocabulary"
	SubRhetoricalDevices SubMetric = "rhetoricalDevices"
	SubEmotionalAppeal   SubMetric = "emotionalAppeal"
	SubLogicalAppeal     SubMetric = "logicalAppeal"
	SubEyeContact        SubMetric = "eyeContact"
	SubGestures          SubMetric = "gestures"
	SubPosture           SubMetric = "posture"
	SubStagePresence     SubMetric = "stagePresence"
)

// displayName maps sub-metric identifiers to learner-facing names used in
// drill text.
var displayName = map[SubMetric]string{
	SubTopicAdherence:    "topic adherence",
	SubArgumentStructure: "argument structure",
	SubDepthOfAnalysis:   "depth of analysis",
	SubExamplesEvidence:  "examples and evidence",
	SubTimeManagement:    "time management",
	SubVocalVariety:      "vocal variety",
	SubPacing:            "pacing",
	SubArticulation:      "articulation",
	SubFillerWords:       "filler words",
	SubVocabulary:        "vocabulary",
	SubRhetoricalDevices: "rhetorical devices",
	SubEmotionalAppeal:   "emotional appeal",
	SubLogicalAppeal:     "logical appeal",
	SubEyeContact:        "eye contact",
	SubGestures:          "gestures",
	SubPosture:           "posture",
	SubStagePresence:     "stage presence",
}

// selectorStats are the measured facts suppression predicates read.
type selectorStats struct {
	durationSecs    float64
	wordsPerMinute  float64
	fillerTotal     int
	fillerPerMinute float64
	eyeContactPct   float64
}

// Suppression predicates, shared between templates and tagged model items.
// A recommendation that contradicts the measured stats is never shown.
func suppressFiller(s selectorStats) bool {
	return s.fillerPerMinute < 3 || s.fillerTotal == 0
}

func suppressEyeContact(s selectorStats) bool {
	return s.eyeContactPct >= 75
}

func suppressPacing(s selectorStats) bool {
	return s.wordsPerMinute >= 130 && s.wordsPerMinute <= 170
}

func suppressLength(s selectorStats) bool {
	return s.durationSecs >= 240 && s.durationSecs <= 420
}

// improvementTemplate is one tagged improvement variant. The suppression
// predicate travels with the template as data, so no rendered text is ever
// pattern-matched to decide suppression.
type improvementTemplate struct {
	metric   SubMetric
	issue    string
	action   string
	impact   string
	suppress func(selectorStats) bool
}

// subMetricTemplates maps every displayed sub-metric to its fixed
// improvement template, in no particular order; selection order comes from
// the live scores.
var subMetricTemplates = map[SubMetric]improvementTemplate{
	SubTopicAdherence: {
		metric: SubTopicAdherence,
		issue:  "Speech drifted away from the assigned theme",
		action: "Restate the theme in your own words within the first 30 seconds, then tie each main point back to it explicitly",
		impact: "Judges score topic adherence first; anchoring every point to the theme protects your content score",
	},
	SubArgumentStructure: {
		metric: SubArgumentStructure,
		issue:  "Arguments lacked a clear claim-evidence-impact chain",
		action: "For each point, state the claim in one sentence, give one piece of support, then say why it matters",
		impact: "A visible argument skeleton makes your reasoning easy to follow and score",
	},
	SubDepthOfAnalysis: {
		metric: SubDepthOfAnalysis,
		issue:  "Analysis stayed at surface level",
		action: "After each claim, ask 'why is that true?' once more and speak the answer",
		impact: "One extra layer of reasoning per point is the fastest route to a higher content score",
	},
	SubExamplesEvidence: {
		metric: SubExamplesEvidence,
		issue:  "Points were asserted without concrete examples",
		action: "Prepare a bank of 10 versatile examples (historical, personal, current events) and attach one to every main point",
		impact: "Specific examples are what judges remember when ranking speeches",
	},
	SubTimeManagement: {
		metric:   SubTimeManagement,
		issue:    "Speech length was outside the target window",
		action:   "Practice with a visible timer and plan a 1-minute buffer for your conclusion",
		impact:   "Hitting the 4-7 minute window removes an automatic deduction",
		suppress: suppressLength,
	},
	SubVocalVariety: {
		metric: SubVocalVariety,
		issue:  "Delivery stayed at one pitch and energy level",
		action: "Mark two moments per speech for a deliberate shift: drop to near-whisper for gravity, lift pace and volume for urgency",
		impact: "Contrast is what keeps judges listening in the fifth minute",
	},
	SubPacing: {
		metric:   SubPacing,
		issue:    "Speaking rate was outside the comfortable listening range",
		action:   "Rehearse with a metronome app targeting 130-170 words per minute and record yourself weekly",
		impact:   "A settled rate makes every other delivery skill easier to perceive",
		suppress: suppressPacing,
	},
	SubArticulation: {
		metric: SubArticulation,
		issue:  "Word endings and consonants blurred together",
		action: "Do two minutes of over-enunciated tongue twisters before each practice run",
		impact: "Crisp articulation raises perceived confidence without changing a word of content",
	},
	SubFillerWords: {
		metric:   SubFillerWords,
		issue:    "Filler words interrupted the flow",
		action:   "Replace every urge to say 'um' with a silent two-beat pause; track your count per practice speech",
		impact:   "Cutting fillers below 3 per minute is the most visible single delivery improvement",
		suppress: suppressFiller,
	},
	SubVocabulary: {
		metric: SubVocabulary,
		issue:  "Word choice leaned on vague, repeated terms",
		action: "Pick three precise word upgrades before each speech (such as 'important' to 'decisive') and use each once",
		impact: "Precise vocabulary signals preparation and earns language points cheaply",
	},
	SubRhetoricalDevices: {
		metric: SubRhetoricalDevices,
		issue:  "Speech used little rhetorical technique",
		action: "Build one rule-of-three and one callback to your opening into every practice speech",
		impact: "Even two deliberate devices per speech measurably lift the language score",
	},
	SubEmotionalAppeal: {
		metric: SubEmotionalAppeal,
		issue:  "Content engaged the head but not the heart",
		action: "Include one first-person story of under 45 seconds that illustrates your core claim",
		impact: "A single authentic story does more persuasive work than another statistic",
	},
	SubLogicalAppeal: {
		metric: SubLogicalAppeal,
		issue:  "Conclusions did not clearly follow from the premises",
		action: "Write your syllogism (premise, premise, therefore) on a card before speaking and follow it",
		impact: "Airtight logic is the hardest part of a speech for an opponent or judge to discount",
	},
	SubEyeContact: {
		metric:   SubEyeContact,
		issue:    "Gaze dropped away from the audience",
		action:   "Practice the 3-second rule: hold eye contact with one spot for a full thought before moving on",
		impact:   "Keeping eye contact above 75% of speaking time transforms perceived authority",
		suppress: suppressEyeContact,
	},
	SubGestures: {
		metric: SubGestures,
		issue:  "Hands were static or repeated one gesture",
		action: "Choreograph one descriptive gesture per main point and keep hands at rest otherwise",
		impact: "Purposeful gestures reinforce structure; random ones leak nervousness",
	},
	SubPosture: {
		metric: SubPosture,
		issue:  "Stance shifted and closed off during the speech",
		action: "Set your feet shoulder-width before the first word and return to that base after every move",
		impact: "A stable base projects composure for the entire speech",
	},
	SubStagePresence: {
		metric: SubStagePresence,
		issue:  "Energy did not fill the room",
		action: "Claim the space in your first ten seconds: pause, plant, scan the whole audience, then begin",
		impact: "Presence decisions in the opening seconds set the judges' baseline for everything after",
	},
}

// genericTemplates pad the list when measured stats suppress most specific
// recommendations. They are high-return-on-investment habits with no
// suppression conditions.
var genericTemplates = []improvementTemplate{
	{
		issue:  "Transitions between points were abrupt",
		action: "Signpost explicitly with one verbal marker per transition: 'my first point', 'this leads to', 'finally'",
		impact: "Signposting lets judges file your arguments instead of reconstructing them",
	},
	{
		issue:  "Conclusion restated rather than elevated",
		action: "End with a one-sentence callback to your opening image plus a forward-looking charge to the audience",
		impact: "The final 15 seconds weigh heaviest in a judge's memory",
	},
	{
		issue:  "Pace through transitions rushed the audience",
		action: "Take a full breath at every transition before starting the next point",
		impact: "Micro-pauses give weight to what was just said and signal command of the room",
	},
	{
		issue:  "Examples stayed generic",
		action: "Swap each hypothetical ('imagine a person who...') for a named, dated, real instance",
		impact: "Specificity is the cheapest credibility available to an impromptu speaker",
	},
}

// modelItemTags classifies a model-provided free-text item into the concern
// whose suppression predicate applies. This is a data table of concern
// keywords, checked against lowercased issue+action text; items matching no
// concern are never suppressed.
var modelItemTags = []struct {
	keywords []string
	suppress func(selectorStats) bool
}{
	{keywords: []string{"filler", "crutch word", "verbal tic"}, suppress: suppressFiller},
	{keywords: []string{"eye contact", "gaze", "look at the audience"}, suppress: suppressEyeContact},
	{keywords: []string{"pacing", "speaking rate", "too fast", "too slow", "words per minute"}, suppress: suppressPacing},
	{keywords: []string{"length", "duration", "too short", "minimum time", "speak longer"}, suppress: suppressLength},
}

// lengthItem builds the forced priority-1 item for speeches under the
// 4-minute minimum, with the message graded by how short the speech was.
func lengthItem(secs float64) PriorityImprovement {
	var issue string
	switch {
	case secs < 60:
		issue = "Speech ended almost immediately, under one minute of the 4-7 minute window"
	case secs < 180:
		issue = "Speech was several minutes short of the 4-minute minimum"
	default:
		issue = "Speech fell just short of the 4-minute minimum"
	}
	return PriorityImprovement{
		Priority: 1,
		Issue:    issue,
		Action:   "Outline three main points before speaking and commit to developing each for at least one minute",
		Impact:   "Reaching the minimum time is a prerequisite for every other score to matter",
	}
}

// SelectPriorities rewrites a.PriorityImprovements to the ranked list of at
// most three items: a forced length item when the speech was short, the
// model's own items where they survive validation and suppression, the
// lowest-scoring sub-metrics' templates, and finally generic habits as
// padding. It also redirects the practice drill and next-session focus at
// the weakest sub-metric when that score is below 7.0.
//
// Call it after [Enforce], so the measured stats the suppression predicates
// read are already in place.
func SelectPriorities(a *Analysis, duration time.Duration) {
	stats := selectorStats{
		durationSecs:    duration.Seconds(),
		wordsPerMinute:  a.DeliveryAnalysis.Pacing.WPM,
		fillerTotal:     a.DeliveryAnalysis.FillerWords.Total,
		fillerPerMinute: a.DeliveryAnalysis.FillerWords.PerMinute,
		eyeContactPct:   a.BodyLanguageAnalysis.EyeContact.Percentage,
	}

	var selected []PriorityImprovement

	// 1. Insufficient length is always priority 1 when it applies.
	if stats.durationSecs < readyMinDurationSec {
		selected = append(selected, lengthItem(stats.durationSecs))
	}

	// 2. Keep the model's items where complete, novel, and not
	// contradicted by measured stats.
	for _, item := range a.PriorityImprovements {
		if len(selected) >= maxPriorityItems {
			break
		}
		if item.Issue == "" || item.Action == "" || item.Impact == "" {
			continue
		}
		if suppressedModelItem(item, stats) || duplicates(selected, item.Issue) {
			continue
		}
		selected = append(selected, item)
	}

	// 3. Fill from the weakest sub-metrics.
	for _, ms := range a.subMetricsByScore() {
		if len(selected) >= maxPriorityItems {
			break
		}
		tmpl := subMetricTemplates[ms.metric]
		if tmpl.suppress != nil && tmpl.suppress(stats) {
			continue
		}
		if duplicates(selected, tmpl.issue) {
			continue
		}
		selected = append(selected, PriorityImprovement{
			Issue:  tmpl.issue,
			Action: tmpl.action,
			Impact: tmpl.impact,
		})
	}

	// 4. Pad with generic high-return habits.
	for _, tmpl := range genericTemplates {
		if len(selected) >= maxPriorityItems {
			break
		}
		if duplicates(selected, tmpl.issue) {
			continue
		}
		selected = append(selected, PriorityImprovement{
			Issue:  tmpl.issue,
			Action: tmpl.action,
			Impact: tmpl.impact,
		})
	}

	for i := range selected {
		selected[i].Priority = i + 1
	}
	a.PriorityImprovements = selected

	// 5. Redirect the drill at the single weakest sub-metric when it is
	// genuinely weak.
	if weakest := a.subMetricsByScore(); len(weakest) > 0 && weakest[0].score < drillTargetThreshold {
		name := displayName[weakest[0].metric]
		target := clamp(round1(weakest[0].score+1), 0, 10)
		a.PracticeDrill = fmt.Sprintf(
			"Daily drill: pick one practice speech and work only on %s. Score yourself honestly; your target is %.1f by next session.",
			name, target)
		a.NextSessionFocus = fmt.Sprintf("Raise %s from %.1f to %.1f.", name, weakest[0].score, target)
	}
}

// metricScore pairs a sub-metric identifier with its live score.
type metricScore struct {
	metric SubMetric
	score  float64
}

// subMetricsByScore lists every displayed sub-metric ascending by score,
// with the identifier order as a stable tiebreak.
func (a *Analysis) subMetricsByScore() []metricScore {
	ms := []metricScore{
		{SubTopicAdherence, a.ContentAnalysis.TopicAdherence.Score},
		{SubArgumentStructure, a.ContentAnalysis.ArgumentStructure.Score},
		{SubDepthOfAnalysis, a.ContentAnalysis.DepthOfAnalysis.Score},
		{SubExamplesEvidence, a.ContentAnalysis.ExamplesEvidence.Score},
		{SubTimeManagement, a.ContentAnalysis.TimeManagement.Score},
		{SubVocalVariety, a.DeliveryAnalysis.VocalVariety.Score},
		{SubPacing, a.DeliveryAnalysis.Pacing.Score},
		{SubArticulation, a.DeliveryAnalysis.Articulation.Score},
		{SubFillerWords, a.DeliveryAnalysis.FillerWords.Score},
		{SubVocabulary, a.LanguageAnalysis.Vocabulary.Score},
		{SubRhetoricalDevices, a.LanguageAnalysis.RhetoricalDevices.Score},
		{SubEmotionalAppeal, a.LanguageAnalysis.EmotionalAppeal.Score},
		{SubLogicalAppeal, a.LanguageAnalysis.LogicalAppeal.Score},
		{SubEyeContact, a.BodyLanguageAnalysis.EyeContact.Score},
		{SubGestures, a.BodyLanguageAnalysis.Gestures.Score},
		{SubPosture, a.BodyLanguageAnalysis.Posture.Score},
		{SubStagePresence, a.BodyLanguageAnalysis.StagePresence.Score},
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].score < ms[j].score })
	return ms
}

// suppressedModelItem tags a free-text item by keyword and applies the
// matching concern's suppression predicate.
func suppressedModelItem(item PriorityImprovement, stats selectorStats) bool {
	text := strings.ToLower(item.Issue + " " + item.Action)
	for _, tag := range modelItemTags {
		for _, kw := range tag.keywords {
			if strings.Contains(text, kw) {
				return tag.suppress(stats)
			}
		}
	}
	return false
}

// duplicates reports whether issue is a near-duplicate of any already
// selected item, using Jaro-Winkler similarity on lowercased text.
func duplicates(selected []PriorityImprovement, issue string) bool {
	for _, s := range selected {
		if matchr.JaroWinkler(strings.ToLower(s.Issue), strings.ToLower(issue), false) >= dupSimilarity {
			return true
		}
	}
	return false
}
