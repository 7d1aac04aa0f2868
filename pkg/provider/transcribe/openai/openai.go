// Package openai provides a batch transcriber backed by the OpenAI audio
// transcription API (whisper-1 and the gpt-4o transcribe family).
//
// Any OpenAI-compatible endpoint that implements POST /audio/transcriptions
// works through WithBaseURL, which covers Groq and several self-hosted
// gateways.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/rostrum-ai/rostrum/pkg/provider/transcribe"
)

const defaultTimeout = 5 * time.Minute

// Compile-time assertion that Transcriber implements transcribe.Transcriber.
var _ transcribe.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*options)

type options struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL points the client at an OpenAI-compatible endpoint instead of
// the default api.openai.com.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTimeout sets the per-request timeout. Defaults to 5 minutes.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Transcriber implements transcribe.Transcriber via the OpenAI audio API.
// It is stateless between calls and safe for concurrent use.
type Transcriber struct {
	client oai.Client
	model  oai.AudioModel
}

// New creates a Transcriber using apiKey and model (e.g. "whisper-1",
// "gpt-4o-mini-transcribe").
func New(apiKey, model string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key must not be empty")
	}
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	o := options{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(o.timeout),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}

	return &Transcriber{
		client: oai.NewClient(reqOpts...),
		model:  oai.AudioModel(model),
	}, nil
}

// Transcribe submits the audio and returns the transcript text.
func (t *Transcriber) Transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", errors.New("openai: empty audio payload")
	}
	filename, contentType, err := audioFile(req.MIMEType)
	if err != nil {
		return "", err
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(req.Audio), filename, contentType),
		Model: t.model,
	}
	if req.Prompt != "" {
		params.Prompt = param.NewOpt(req.Prompt)
	}
	if req.Language != "" {
		params.Language = param.NewOpt(req.Language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", transcribe.ErrEmptyTranscript
	}
	return text, nil
}

// audioFile maps a MIME type to the filename and content type the upload
// endpoint expects. The API infers the container from the filename extension.
func audioFile(mimeType string) (filename, contentType string, err error) {
	switch mimeType {
	case "", "audio/wav", "audio/x-wav":
		return "audio.wav", "audio/wav", nil
	case "audio/mp3", "audio/mpeg":
		return "audio.mp3", "audio/mpeg", nil
	case "audio/mp4", "audio/m4a":
		return "audio.m4a", "audio/mp4", nil
	case "audio/webm":
		return "audio.webm", "audio/webm", nil
	case "audio/ogg":
		return "audio.ogg", "audio/ogg", nil
	default:
		return "", "", fmt.Errorf("openai: unsupported audio MIME type %q", mimeType)
	}
}
