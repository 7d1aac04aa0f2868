// Package transcribe defines the Transcriber interface for batch
// speech-to-text backends.
//
// Unlike a realtime voice pipeline, rostrum transcribes fully-uploaded
// recordings: one request carries the complete audio payload and returns the
// complete transcript. Providers wrap a remote API (OpenAI audio
// transcriptions) or a local server (whisper-server's /inference endpoint).
//
// Transcription is the least reliable external call in the pipeline, so the
// package also provides [Chain], an ordered fallback across several
// transcribers that stops at the first non-empty transcript, and
// [Sequential], which transcribes pre-split audio segments one at a time and
// concatenates the results in order. Segment calls are deliberately not
// parallelised: this bounds concurrent load on the provider and keeps
// ordering trivial.
//
// Implementations must be safe for concurrent use.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrEmptyTranscript is returned when a provider call succeeds but produces
// no usable text. The [Chain] treats it like any other failure and moves on
// to the next transcriber.
var ErrEmptyTranscript = errors.New("transcribe: empty transcript")

// Request carries one batch transcription job.
type Request struct {
	// Audio is the complete encoded audio payload.
	Audio []byte

	// MIMEType identifies the encoding ("audio/wav", "audio/mp3",
	// "audio/mp4"). Providers reject formats they cannot submit.
	MIMEType string

	// Prompt is an optional vocabulary hint (the speech theme and quote);
	// backends that support conditioning use it to improve recognition of
	// topic-specific terms.
	Prompt string

	// Language is an optional BCP-47 language tag. Empty lets the backend
	// auto-detect.
	Language string
}

// Transcriber is the abstraction over any batch speech-to-text backend.
type Transcriber interface {
	// Transcribe submits the audio and returns the transcript text.
	// A successful call with no recognised speech returns
	// [ErrEmptyTranscript] rather than an empty string, so fallback
	// chains can distinguish "nothing heard" from "".
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Chain tries each transcriber in order and returns the first non-empty
// transcript. All errors are collected; if every entry fails, the joined
// error is returned so logs show the complete fallback trail.
//
// Chain itself implements [Transcriber], so a chain can nest inside another
// chain if a deployment wants grouped fallbacks.
type Chain struct {
	entries []entry
}

type entry struct {
	name string
	t    Transcriber
}

// Ensure Chain implements Transcriber at compile time.
var _ Transcriber = (*Chain)(nil)

// NewChain returns an empty chain. Add transcribers with [Chain.Add].
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a named transcriber to the fallback order and returns the
// chain for call chaining. The name appears in logs and error messages.
func (c *Chain) Add(name string, t Transcriber) *Chain {
	c.entries = append(c.entries, entry{name: name, t: t})
	return c
}

// Len returns the number of transcribers in the chain.
func (c *Chain) Len() int {
	return len(c.entries)
}

// Transcribe implements [Transcriber] by walking the fallback order.
func (c *Chain) Transcribe(ctx context.Context, req Request) (string, error) {
	if len(c.entries) == 0 {
		return "", errors.New("transcribe: empty chain")
	}

	var errs []error
	for _, e := range c.entries {
		text, err := e.t.Transcribe(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrEmptyTranscript
		}
		slog.Warn("transcribe: chain entry failed, falling back",
			"entry", e.name,
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", e.name, err))

		// A cancelled context fails every later entry too; stop early.
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("transcribe: all %d transcribers failed: %w", len(c.entries), errors.Join(errs...))
}

// Sequential transcribes pre-split audio segments one at a time with t and
// joins the texts in segment order, separated by single spaces. Segments
// are produced upstream by the media extractor; this function only
// guarantees ordering and bounded concurrency (none).
//
// A segment that transcribes to nothing is skipped; an error on any segment
// aborts the whole job, since a gap in the middle of a speech would corrupt
// every downstream statistic.
func Sequential(ctx context.Context, t Transcriber, segments [][]byte, tmpl Request) (string, error) {
	var parts []string
	for i, seg := range segments {
		req := tmpl
		req.Audio = seg
		text, err := t.Transcribe(ctx, req)
		if err != nil {
			if errors.Is(err, ErrEmptyTranscript) {
				continue
			}
			return "", fmt.Errorf("transcribe: segment %d/%d: %w", i+1, len(segments), err)
		}
		if s := strings.TrimSpace(text); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyTranscript
	}
	return strings.Join(parts, " "), nil
}
