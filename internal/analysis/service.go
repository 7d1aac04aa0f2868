// Package analysis orchestrates the full speech-grading pipeline:
// transcription (with fallback chain and chunked re-transcription),
// heuristic classification with its short-circuit, the judge call, JSON
// recovery, score normalization, rubric enforcement, and priority selection.
//
// Every request resolves to a [Result]; no failure in the pipeline is fatal
// to the host process.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rostrum-ai/rostrum/internal/classify"
	"github.com/rostrum-ai/rostrum/internal/llmjson"
	"github.com/rostrum-ai/rostrum/internal/observe"
	"github.com/rostrum-ai/rostrum/internal/rubric"
	"github.com/rostrum-ai/rostrum/internal/textmetrics"
	"github.com/rostrum-ai/rostrum/pkg/provider/llm"
	"github.com/rostrum-ai/rostrum/pkg/provider/transcribe"
)

const (
	// defaultMaxConcurrent bounds simultaneous analyses. Each analysis
	// holds large audio buffers and a long-lived model call.
	defaultMaxConcurrent = 4

	// defaultJudgeTimeout bounds the main judge call; a full recording
	// with audio attachment can take most of a minute to score.
	defaultJudgeTimeout = 3 * time.Minute

	// defaultTranscribeTimeout bounds one transcription attempt.
	defaultTranscribeTimeout = 5 * time.Minute

	// defaultRepairTimeout bounds the format-only repair call, which is
	// text-only and small.
	defaultRepairTimeout = 45 * time.Second

	// judgeTemperature keeps scoring as deterministic as a sampling model
	// allows.
	judgeTemperature = 0.2

	// judgeMaxTokens leaves headroom for the full schema with feedback.
	judgeMaxTokens = 8192

	// Chunked re-transcription triggers when the single-pass transcript
	// implies an implausibly low speaking rate for a long recording,
	// which usually means the transcription truncated.
	truncationWPMThreshold    = 50.0
	truncationMinDurationSecs = 90.0
)

// Request is one speech to grade.
type Request struct {
	// Theme is the assigned speech theme.
	Theme string

	// Quote is the optional prompt quote the speaker drew.
	Quote string

	// Audio is the full encoded recording. Optional when Transcript is
	// pre-supplied.
	Audio []byte

	// AudioMIMEType identifies the Audio encoding.
	AudioMIMEType string

	// AudioChunks are sequential ~60s segments of the same recording,
	// pre-split by the media extractor. Used for chunked re-transcription
	// when the single-pass transcript looks truncated.
	AudioChunks [][]byte

	// Transcript, when non-empty, skips transcription entirely.
	Transcript string

	// Duration is the measured speech duration.
	Duration time.Duration

	// Language is an optional BCP-47 hint for transcription.
	Language string
}

// Service runs the grading pipeline. Construct with [New]; safe for
// concurrent use.
type Service struct {
	judge       llm.Provider
	recoverer   *llmjson.Recoverer
	transcriber transcribe.Transcriber

	counter *textmetrics.SightingCounter
	metrics *observe.Metrics
	sem     *semaphore.Weighted

	judgeTimeout      time.Duration
	transcribeTimeout time.Duration
	repairTimeout     time.Duration

	attachAudio bool
}

// Option is a functional option for configuring a Service.
type Option func(*Service)

// WithMaxConcurrent bounds the number of simultaneous analyses. Default 4.
func WithMaxConcurrent(n int64) Option {
	return func(s *Service) { s.sem = semaphore.NewWeighted(n) }
}

// WithJudgeTimeout sets the main judge call timeout.
func WithJudgeTimeout(d time.Duration) Option {
	return func(s *Service) { s.judgeTimeout = d }
}

// WithTranscribeTimeout sets the per-transcription timeout.
func WithTranscribeTimeout(d time.Duration) Option {
	return func(s *Service) { s.transcribeTimeout = d }
}

// WithRepairTimeout sets the format-only repair call timeout. It is shorter
// than the judge timeout because the repair is a small text-only request.
func WithRepairTimeout(d time.Duration) Option {
	return func(s *Service) { s.repairTimeout = d }
}

// WithMetrics replaces the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudioAttachment controls whether the judge call carries the recording
// as a multimodal attachment. Enable only for judge providers that accept
// audio input; others receive the transcript alone.
func WithAudioAttachment(enabled bool) Option {
	return func(s *Service) { s.attachAudio = enabled }
}

// New constructs a Service.
//
// judge scores speeches; repair, which may be nil or the same provider,
// serves the one-shot format-only JSON repair pass; transcriber (typically a
// [transcribe.Chain]) produces transcripts from audio.
func New(judge llm.Provider, repair llm.Provider, transcriber transcribe.Transcriber, opts ...Option) *Service {
	s := &Service{
		judge:             judge,
		recoverer:         llmjson.NewRecoverer(repair, judgeSchemaSketch),
		transcriber:       transcriber,
		counter:           textmetrics.NewSightingCounter(),
		metrics:           observe.DefaultMetrics(),
		sem:               semaphore.NewWeighted(defaultMaxConcurrent),
		judgeTimeout:      defaultJudgeTimeout,
		transcribeTimeout: defaultTranscribeTimeout,
		repairTimeout:     defaultRepairTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze grades one speech. It always returns a Result; errors are folded
// into the envelope. The only returned error is a context/semaphore failure
// before any work started.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("analysis: acquire slot: %w", err)
	}
	defer s.sem.Release(1)

	s.metrics.ActiveAnalyses.Add(ctx, 1)
	defer s.metrics.ActiveAnalyses.Add(ctx, -1)

	start := time.Now()
	defer func() {
		s.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	}()

	log := observe.Logger(ctx)

	// --- Transcription ---
	transcript := req.Transcript
	var warning string
	if transcript == "" {
		if len(req.Audio) == 0 {
			// No audio and no transcript: the caller UI still expects a
			// scoreable result, so wrap the guarded document instead of
			// erroring.
			log.Warn("analysis: no audio or transcript supplied, returning insufficient-speech document")
			s.metrics.RecordClassification(ctx, string(classify.TooShort))
			return s.insufficientResult("", req.Duration, "no usable audio or transcript was supplied"), nil
		}

		var err error
		transcript, err = s.transcribe(ctx, req)
		if err != nil {
			log.Error("analysis: transcription failed", "error", err)
			if errors.Is(err, transcribe.ErrEmptyTranscript) {
				// The audio produced no recognisable speech at all.
				s.metrics.RecordClassification(ctx, string(classify.TooShort))
				return s.insufficientResult("", req.Duration, "no speech was recognised in the recording"), nil
			}
			return failure("", ErrorTranscriptionError, fmt.Sprintf("transcription failed: %v", err)), nil
		}
	}

	// Chunked re-transcription: a long recording with an implausibly low
	// implied speaking rate usually means the single pass truncated.
	if s.looksTruncated(transcript, req.Duration) && len(req.AudioChunks) > 0 {
		log.Info("analysis: transcript looks truncated, re-transcribing in chunks",
			"words", textmetrics.WordCount(transcript),
			"duration_s", req.Duration.Seconds(),
			"chunks", len(req.AudioChunks),
		)
		if chunked := s.retranscribeChunked(ctx, req); textmetrics.WordCount(chunked) > textmetrics.WordCount(transcript) {
			transcript = chunked
			warning = "single-pass transcription looked truncated; transcript was rebuilt from chunked re-transcription"
		}
	}

	// --- Integrity ---
	integrity := textmetrics.ComputeIntegrity(transcript, s.counter)
	if integrity.Suspicious {
		s.metrics.SuspiciousTranscripts.Add(ctx, 1)
		warning = joinWarnings(warning, "this transcript has been analyzed multiple times recently")
	}

	// --- Heuristic pre-check ---
	pre := classify.Precheck(transcript, req.Theme, req.Quote)
	if pre.SkipJudge {
		log.Info("analysis: heuristic short-circuit, judge call skipped",
			"classification", pre.Classification,
			"reason", pre.Reason,
		)
		s.metrics.RecordClassification(ctx, string(pre.Classification))
		s.metrics.RecordCapApplied(ctx, "precheck")

		res := s.insufficientResult(transcript, req.Duration, pre.Reason)
		res.Analysis.Classification = pre.Classification
		res.TranscriptIntegrity = &integrity
		res.AnalysisWarning = joinWarnings(warning, res.AnalysisWarning)
		return res, nil
	}

	// --- Duration detector ---
	// Duration is known before the judge runs. A severe detection here can
	// never be uncapped by any model answer, so the judge call is saved.
	if detected := classify.Detect(transcript, req.Duration); detected.Severe() {
		log.Info("analysis: duration detector short-circuit, judge call skipped",
			"classification", detected,
			"duration_s", req.Duration.Seconds(),
		)
		s.metrics.RecordClassification(ctx, string(detected))
		s.metrics.RecordCapApplied(ctx, "detector")

		res := s.insufficientResult(transcript, req.Duration, detectorReason(detected))
		res.Analysis.Classification = detected
		res.TranscriptIntegrity = &integrity
		res.AnalysisWarning = joinWarnings(warning, res.AnalysisWarning)
		return res, nil
	}

	// --- Judge call ---
	raw, err := s.callJudge(ctx, req, transcript)
	if err != nil {
		log.Error("analysis: judge call failed", "error", err)
		res := failure(transcript, ErrorModelError, fmt.Sprintf("judge call failed: %v", err))
		res.TranscriptIntegrity = &integrity
		return res, nil
	}

	// --- JSON recovery ---
	var a rubric.Analysis
	recoverCtx, cancel := context.WithTimeout(ctx, s.repairTimeout)
	recoverStart := time.Now()
	parse, err := s.recoverer.Decode(recoverCtx, raw, &a)
	cancel()
	if err != nil {
		var pf *llmjson.ParseFailure
		if errors.As(err, &pf) {
			if pf.RepairUsed {
				s.metrics.RepairDuration.Record(ctx, time.Since(recoverStart).Seconds())
			}
			log.Error("analysis: judge output unrecoverable",
				"fail_count", pf.FailCount,
				"repair_used", pf.RepairUsed,
			)
			s.metrics.RecordParseFailure(ctx, "repair", false)
			res := failure(transcript, ErrorParseFailure, "judge output contained no decodable JSON object")
			res.ErrorDetails.RawModelOutput = pf.Raw
			res.ParseMetrics = &ParseMetrics{
				ParseFailCount: pf.FailCount,
				RepairUsed:     pf.RepairUsed,
				RawOutput:      pf.Raw,
			}
			res.TranscriptIntegrity = &integrity
			return res, nil
		}
		res := failure(transcript, ErrorModelError, fmt.Sprintf("judge output recovery failed: %v", err))
		res.TranscriptIntegrity = &integrity
		return res, nil
	}
	if parse.RepairUsed {
		s.metrics.RepairDuration.Record(ctx, time.Since(recoverStart).Seconds())
		s.metrics.RecordParseFailure(ctx, "local", true)
	}

	if degenerate(&a) {
		res := failure(transcript, ErrorSchemaValidation, "judge output decoded but carried no scores")
		res.TranscriptIntegrity = &integrity
		return res, nil
	}

	// --- Deterministic post-processing ---
	detected := classify.Detect(transcript, req.Duration)
	final := classify.Reconcile(detected, a.Classification)
	s.metrics.RecordClassification(ctx, string(final))

	rubric.Normalize(&a)
	rubric.Enforce(&a, rubric.Enforcement{
		Classification: final,
		PrecheckCap:    pre.MaxOverall,
		Duration:       req.Duration,
		Transcript:     transcript,
	})
	rubric.SelectPriorities(&a, req.Duration)

	if a.CapsApplied {
		s.metrics.RecordCapApplied(ctx, string(final))
	}

	return &Result{
		Success:             true,
		Transcript:          transcript,
		Analysis:            &a,
		TranscriptIntegrity: &integrity,
		ParseMetrics: &ParseMetrics{
			ParseFailCount: parse.ParseFailCount,
			RepairUsed:     parse.RepairUsed,
		},
		AnalysisWarning: warning,
	}, nil
}

// transcribe runs the (chained) transcriber over the full recording.
func (s *Service) transcribe(ctx context.Context, req Request) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, s.transcribeTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.transcriber.Transcribe(tctx, transcribe.Request{
		Audio:    req.Audio,
		MIMEType: req.AudioMIMEType,
		Prompt:   transcriptionPrompt(req.Theme, req.Quote),
		Language: req.Language,
	})
	s.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, "chain", "transcribe")
		s.metrics.RecordProviderRequest(ctx, "chain", "transcribe", "error")
		return "", err
	}
	s.metrics.RecordProviderRequest(ctx, "chain", "transcribe", "ok")
	return text, nil
}

// retranscribeChunked rebuilds the transcript from sequential chunk calls.
// A failed chunk pass returns "" so the caller keeps the original.
func (s *Service) retranscribeChunked(ctx context.Context, req Request) string {
	tctx, cancel := context.WithTimeout(ctx, s.transcribeTimeout)
	defer cancel()

	text, err := transcribe.Sequential(tctx, s.transcriber, req.AudioChunks, transcribe.Request{
		MIMEType: req.AudioMIMEType,
		Prompt:   transcriptionPrompt(req.Theme, req.Quote),
		Language: req.Language,
	})
	if err != nil {
		slog.Warn("analysis: chunked re-transcription failed, keeping single-pass transcript", "error", err)
		return ""
	}
	return text
}

// looksTruncated reports whether the transcript's implied speaking rate is
// implausibly low for the recording length.
func (s *Service) looksTruncated(transcript string, duration time.Duration) bool {
	secs := duration.Seconds()
	if secs <= truncationMinDurationSecs {
		return false
	}
	wpm := float64(textmetrics.WordCount(transcript)) / duration.Minutes()
	return wpm < truncationWPMThreshold
}

// callJudge issues the main scoring call, optionally attaching the audio.
func (s *Service) callJudge(ctx context.Context, req Request, transcript string) (string, error) {
	jctx, cancel := context.WithTimeout(ctx, s.judgeTimeout)
	defer cancel()

	attach := s.attachAudio && len(req.Audio) > 0
	cr := llm.CompletionRequest{
		SystemPrompt: judgeSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildJudgePrompt(req.Theme, req.Quote, req.Duration, transcript, attach)},
		},
		Temperature: judgeTemperature,
		MaxTokens:   judgeMaxTokens,
	}
	if attach {
		cr.Attachments = []llm.Attachment{{MIMEType: req.AudioMIMEType, Data: req.Audio}}
	}

	start := time.Now()
	resp, err := s.judge.Complete(jctx, cr)
	s.metrics.JudgeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, "judge", "llm")
		s.metrics.RecordProviderRequest(ctx, "judge", "llm", "error")
		return "", err
	}
	s.metrics.RecordProviderRequest(ctx, "judge", "llm", "ok")
	return resp.Content, nil
}

// insufficientResult wraps the guarded fallback document in a success-shaped
// envelope.
func (s *Service) insufficientResult(transcript string, duration time.Duration, reason string) *Result {
	return &Result{
		Success:         true,
		Transcript:      transcript,
		Analysis:        rubric.InsufficientSpeech(transcript, duration),
		AnalysisWarning: reason,
	}
}

// detectorReason phrases the duration detector's verdict for the analysis
// warning field.
func detectorReason(c classify.Classification) string {
	if c == classify.Nonsense {
		return "the transcript did not contain coherent speech"
	}
	return "the speech was too short to score against the full rubric"
}

// degenerate reports whether a decoded analysis carries no scores at all,
// which means the model answered with the wrong shape that still happened to
// unmarshal.
func degenerate(a *rubric.Analysis) bool {
	cs := a.CategoryScores
	return a.OverallScore == 0 &&
		cs.Content.Score == 0 && cs.Delivery.Score == 0 &&
		cs.Language.Score == 0 && cs.BodyLanguage.Score == 0 &&
		a.ContentAnalysis.TopicAdherence.Score == 0 &&
		a.DeliveryAnalysis.VocalVariety.Score == 0 &&
		a.LanguageAnalysis.Vocabulary.Score == 0 &&
		a.BodyLanguageAnalysis.EyeContact.Score == 0
}

// transcriptionPrompt builds the vocabulary hint passed to transcription
// backends that support conditioning.
func transcriptionPrompt(theme, quote string) string {
	switch {
	case theme != "" && quote != "":
		return theme + ". " + quote
	case theme != "":
		return theme
	default:
		return quote
	}
}

// joinWarnings merges soft warnings, skipping empties.
func joinWarnings(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
