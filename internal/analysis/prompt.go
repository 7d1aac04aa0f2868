package analysis

import (
	"fmt"
	"strings"
	"time"
)

// judgeSystemPrompt fixes the judge's role and output contract. The schema
// sketch is repeated in the user prompt so fence-happy models still anchor on
// the shape.
const judgeSystemPrompt = `You are a veteran impromptu-speaking judge for competitive speech tournaments.
You evaluate one recorded speech against a fixed four-category rubric:
content (40%), delivery (30%), language (15%), body language (15%).
Score every metric from 0 to 10. Be rigorous and consistent; a 7 is a genuinely
strong competitive performance, a 9 belongs in a final round.
Respond with ONLY one JSON object matching the requested schema. No markdown
fences, no commentary before or after the object.`

// judgeSchemaSketch is the compact shape description shown to the judge and
// reused by the format-only repair call.
const judgeSchemaSketch = `{
  "classification": "normal|too_short|nonsense|off_topic|mostly_off_topic",
  "capsApplied": false,
  "overallScore": 0.0,
  "performanceTier": "",
  "tournamentReady": false,
  "categoryScores": {
    "content": {"score": 0.0, "weight": 0.40, "weighted": 0.0},
    "delivery": {"score": 0.0, "weight": 0.30, "weighted": 0.0},
    "language": {"score": 0.0, "weight": 0.15, "weighted": 0.0},
    "bodyLanguage": {"score": 0.0, "weight": 0.15, "weighted": 0.0}
  },
  "contentAnalysis": {
    "topicAdherence": {"score": 0.0, "feedback": ""},
    "argumentStructure": {"score": 0.0, "feedback": ""},
    "depthOfAnalysis": {"score": 0.0, "feedback": ""},
    "examplesEvidence": {"score": 0.0, "feedback": ""},
    "timeManagement": {"score": 0.0, "feedback": ""}
  },
  "deliveryAnalysis": {
    "vocalVariety": {"score": 0.0, "feedback": ""},
    "pacing": {"score": 0.0, "feedback": "", "wpm": 0.0},
    "articulation": {"score": 0.0, "feedback": ""},
    "fillerWords": {"score": 0.0, "feedback": "", "total": 0, "perMinute": 0.0, "breakdown": {}}
  },
  "languageAnalysis": {
    "vocabulary": {"score": 0.0, "feedback": ""},
    "rhetoricalDevices": {"score": 0.0, "feedback": "", "examples": []},
    "emotionalAppeal": {"score": 0.0, "feedback": ""},
    "logicalAppeal": {"score": 0.0, "feedback": ""}
  },
  "bodyLanguageAnalysis": {
    "eyeContact": {"score": 0.0, "feedback": "", "percentage": 0.0},
    "gestures": {"score": 0.0, "feedback": ""},
    "posture": {"score": 0.0, "feedback": ""},
    "stagePresence": {"score": 0.0, "feedback": ""}
  },
  "speechStats": {"wordCount": 0, "durationSeconds": 0.0, "wordsPerMinute": 0.0, "fillerCount": 0, "fillerPerMinute": 0.0},
  "structureAnalysis": {
    "introduction": {"score": 0.0, "feedback": ""},
    "bodyPoints": [],
    "conclusion": {"score": 0.0, "feedback": ""}
  },
  "priorityImprovements": [{"priority": 1, "issue": "", "action": "", "impact": ""}],
  "strengths": [],
  "practiceDrill": "",
  "nextSessionFocus": ""
}`

// buildJudgePrompt assembles the user message for the judge call.
func buildJudgePrompt(theme, quote string, duration time.Duration, transcript string, hasAudio bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Assigned theme: %s\n", theme)
	if quote != "" {
		fmt.Fprintf(&b, "Prompt quote: %q\n", quote)
	}
	fmt.Fprintf(&b, "Measured duration: %.0f seconds (target window: 240-420 seconds)\n\n", duration.Seconds())

	if hasAudio {
		b.WriteString("The speaker's audio recording is attached; use it to judge vocal variety, pacing, and articulation directly.\n\n")
	}

	b.WriteString("Transcript:\n---\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\n")

	b.WriteString("First classify the transcript honestly (normal, too_short, nonsense, off_topic, or mostly_off_topic relative to the theme). ")
	b.WriteString("Then score every rubric metric. Reply with exactly one JSON object of this shape:\n\n")
	b.WriteString(judgeSchemaSketch)

	return b.String()
}
