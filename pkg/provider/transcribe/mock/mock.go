// Package mock provides a test double for the transcribe package interface.
//
// Use Transcriber to return controlled transcripts and inspect which
// requests were submitted.
//
// Example:
//
//	t := &mock.Transcriber{Text: "hello world"}
//	text, err := t.Transcribe(ctx, req)
//	calls := t.TranscribeCalls
package mock

import (
	"context"
	"sync"

	"github.com/rostrum-ai/rostrum/pkg/provider/transcribe"
)

// Compile-time assertion that Transcriber implements transcribe.Transcriber.
var _ transcribe.Transcriber = (*Transcriber)(nil)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Req is the request passed to Transcribe.
	Req transcribe.Request
}

// Transcriber is a mock implementation of transcribe.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Text is returned by Transcribe when Texts is empty.
	Text string

	// Texts, if non-empty, scripts successive Transcribe return values in
	// order. The last entry is repeated once the script is exhausted. Useful
	// for chunked transcription tests where each segment needs its own text.
	Texts []string

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the scripted text and TranscribeErr.
func (t *Transcriber) Transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.TranscribeCalls)
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Ctx: ctx, Req: req})
	if t.TranscribeErr != nil {
		return "", t.TranscribeErr
	}
	if len(t.Texts) > 0 {
		if n >= len(t.Texts) {
			n = len(t.Texts) - 1
		}
		return t.Texts[n], nil
	}
	return t.Text, nil
}

// Reset clears recorded calls so a single mock can serve multiple subtests.
func (t *Transcriber) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranscribeCalls = nil
}
