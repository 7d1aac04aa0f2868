// Package whisper provides a local whisper.cpp-backed batch transcriber.
//
// It connects to a running whisper-server binary (which exposes a REST API at
// POST /inference) and submits each recording as one multipart inference
// request. Because the server runs on the same host there is no per-request
// auth; deployments that need isolation should bind the server to localhost.
//
// Usage:
//
//	t, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("en"),
//	    whisper.WithTimeout(5*time.Minute),
//	)
//	text, err := t.Transcribe(ctx, transcribe.Request{Audio: wav, MIMEType: "audio/wav"})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rostrum-ai/rostrum/pkg/provider/transcribe"
)

// defaultTimeout bounds one inference call. Whisper on CPU can take a large
// fraction of realtime for a seven-minute speech, so this is generous.
const defaultTimeout = 5 * time.Minute

// Compile-time assertion that Transcriber implements transcribe.Transcriber.
var _ transcribe.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with, which is the default.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithLanguage sets the default BCP-47 language code sent to the server.
// A non-empty Request.Language overrides it per call.
func WithLanguage(lang string) Option {
	return func(t *Transcriber) {
		t.language = lang
	}
}

// WithTimeout sets the per-request timeout. Defaults to 5 minutes.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		t.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		t.httpClient = c
	}
}

// Transcriber implements transcribe.Transcriber backed by a whisper.cpp HTTP
// server. It is stateless between calls and safe for concurrent use.
type Transcriber struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Transcriber that talks to the whisper-server at serverURL
// (scheme and host, no trailing slash, e.g. "http://localhost:8080").
func New(serverURL string, opts ...Option) (*Transcriber, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: server URL must not be empty")
	}
	t := &Transcriber{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Transcribe POSTs the audio to the /inference endpoint as
// multipart/form-data and returns the transcribed text.
func (t *Transcriber) Transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", errors.New("whisper: empty audio payload")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// Primary audio field. whisper-server sniffs the container from the
	// bytes, so the filename extension is only a hint.
	fw, err := mw.CreateFormFile("file", "audio"+extensionFor(req.MIMEType))
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return "", fmt.Errorf("whisper: write audio data: %w", err)
	}

	// Optional hint fields.
	lang := req.Language
	if lang == "" {
		lang = t.language
	}
	if lang != "" {
		if err := mw.WriteField("language", lang); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if t.model != "" {
		if err := mw.WriteField("model", t.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if req.Prompt != "" {
		if err := mw.WriteField("prompt", req.Prompt); err != nil {
			return "", fmt.Errorf("whisper: write prompt field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := t.serverURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", transcribe.ErrEmptyTranscript
	}
	return text, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/mp3", "audio/mpeg":
		return ".mp3"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	default:
		return ".wav"
	}
}
