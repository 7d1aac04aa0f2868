// Package llm defines the Provider interface for chat-completion model
// backends used by the rostrum grading pipeline.
//
// A provider wraps a remote model API (OpenAI, Gemini via any-llm, a local
// Ollama instance) and exposes a uniform one-shot completion interface. The
// grading pipeline is strictly batch: a recording is fully uploaded before
// analysis starts, so there is no streaming surface here; every call is a
// single request/response with an explicit timeout carried by the context.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly by aborting the in-flight HTTP call.
package llm

import (
	"context"
	"errors"
)

// ErrAttachmentsUnsupported is returned by providers that can only judge
// from the transcript when a request carries media attachments.
var ErrAttachmentsUnsupported = errors.New("llm: provider does not support media attachments")

// Message is one turn of the conversation sent to the model.
type Message struct {
	// Role is "user" or "assistant". System instructions go in
	// [CompletionRequest.SystemPrompt], not here.
	Role string

	// Content is the text of the turn.
	Content string
}

// Attachment is a media payload (speech audio or recording video) sent
// alongside the final user message for multimodal judging.
type Attachment struct {
	// MIMEType identifies the payload ("audio/wav", "audio/mp3",
	// "video/mp4"). Providers reject types their backing model cannot
	// consume.
	MIMEType string

	// Data is the raw media bytes. Providers handle any base64 or upload
	// encoding the backend requires.
	Data []byte
}

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and may differ between providers for the same
// content.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a
// response. At minimum Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before the
	// conversation. Providers map it to the backend's native system slot.
	SystemPrompt string

	// Messages is the ordered conversation. The last message drives the
	// response.
	Messages []Message

	// Attachments are media payloads associated with the last user message.
	// Providers without multimodal support return
	// [ErrAttachmentsUnsupported] when this is non-empty.
	Attachments []Attachment

	// Temperature controls output randomness in [0.0, 2.0]. The JSON repair
	// pass always uses 0.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full model reply.
type CompletionResponse struct {
	// Content is the raw text of the reply. The grading pipeline treats it
	// as an untrusted signal and runs it through the JSON recovery protocol.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
//
// Implementations must be safe for concurrent use. Complete returns an error
// if the request fails or ctx is cancelled before the response arrives; a
// timeout is an ordinary error, never fatal to the process.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
