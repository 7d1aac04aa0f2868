package analysis

import (
	"github.com/rostrum-ai/rostrum/internal/rubric"
	"github.com/rostrum-ai/rostrum/internal/textmetrics"
)

// ErrorType categorises a failed analysis for the caller.
type ErrorType string

const (
	// ErrorParseFailure means the judge output never yielded a decodable
	// JSON object, even after the repair pass.
	ErrorParseFailure ErrorType = "parse_failure"

	// ErrorSchemaValidation means the judge output decoded but did not
	// carry a usable analysis shape.
	ErrorSchemaValidation ErrorType = "schema_validation"

	// ErrorModelError means the judge call itself failed (network, timeout,
	// non-2xx).
	ErrorModelError ErrorType = "model_error"

	// ErrorTranscriptionError means every transcription attempt failed.
	ErrorTranscriptionError ErrorType = "transcription_error"
)

// ErrorDetails describes a failed analysis.
type ErrorDetails struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`

	// RawModelOutput is retained only for parse failures, for diagnostics.
	RawModelOutput string `json:"rawModelOutput,omitempty"`
}

// ParseMetrics reports how much JSON recovery the judge call needed.
type ParseMetrics struct {
	ParseFailCount int  `json:"parseFailCount"`
	RepairUsed     bool `json:"repairUsed"`

	// RawOutput is retained only on total parse failure.
	RawOutput string `json:"rawOutput,omitempty"`
}

// Result is the envelope returned for every analysis request. All failure
// paths resolve to a Result; nothing in the pipeline is fatal to the host
// process.
type Result struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`

	Analysis *rubric.Analysis `json:"analysis,omitempty"`

	Error        string        `json:"error,omitempty"`
	ErrorDetails *ErrorDetails `json:"errorDetails,omitempty"`

	TranscriptIntegrity *textmetrics.Integrity `json:"transcriptIntegrity,omitempty"`
	ParseMetrics        *ParseMetrics          `json:"parseMetrics,omitempty"`

	// AnalysisWarning carries soft signals that do not fail the request: a
	// heuristic short-circuit, a suspicious repeated transcript, or a
	// degraded transcription.
	AnalysisWarning string `json:"analysisWarning,omitempty"`
}

// failure builds an error-shaped result.
func failure(transcript string, errType ErrorType, msg string) *Result {
	return &Result{
		Success:    false,
		Transcript: transcript,
		Error:      msg,
		ErrorDetails: &ErrorDetails{
			Type:    errType,
			Message: msg,
		},
	}
}
