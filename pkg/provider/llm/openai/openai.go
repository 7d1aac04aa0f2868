// Package openai provides an LLM provider backed by the OpenAI API.
//
// Audio attachments are forwarded as input_audio content parts, so a
// gpt-4o-audio-preview class model can judge delivery from the actual
// recording rather than the transcript alone. Video attachments are not
// supported by the chat completions API and are rejected.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/rostrum-ai/rostrum/pkg/provider/llm"
)

// Provider implements llm.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout. The analysis service uses a
// long timeout for the judge call and a short one for the repair pass.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI LLM Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("openai: build params: %w", err)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildParams converts a CompletionRequest into OpenAI SDK params.
func (p *Provider) buildParams(req llm.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	var messages []oai.ChatCompletionMessageParamUnion

	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}

	for i, m := range req.Messages {
		last := i == len(req.Messages)-1
		msg, err := convertMessage(m, last, req.Attachments)
		if err != nil {
			return oai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, msg)
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}

	return params, nil
}

// convertMessage converts an llm.Message to an OpenAI SDK message param.
// Attachments are attached to the final user message only.
func convertMessage(m llm.Message, last bool, attachments []llm.Attachment) (oai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case "user":
		if !last || len(attachments) == 0 {
			return oai.UserMessage(m.Content), nil
		}

		parts := []oai.ChatCompletionContentPartUnionParam{
			oai.TextContentPart(m.Content),
		}
		for _, a := range attachments {
			part, err := audioPart(a)
			if err != nil {
				return oai.ChatCompletionMessageParamUnion{}, err
			}
			parts = append(parts, part)
		}
		return oai.UserMessage(parts), nil

	case "assistant":
		asst := oai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = oai.String(m.Content)
		}
		return oai.ChatCompletionMessageParamUnion{OfAssistant: &asst}, nil

	default:
		return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: unknown message role %q", m.Role)
	}
}

// audioPart converts an audio attachment to an input_audio content part.
func audioPart(a llm.Attachment) (oai.ChatCompletionContentPartUnionParam, error) {
	format, ok := audioFormat(a.MIMEType)
	if !ok {
		return oai.ChatCompletionContentPartUnionParam{},
			fmt.Errorf("openai: attachment %q: %w", a.MIMEType, llm.ErrAttachmentsUnsupported)
	}
	return oai.InputAudioContentPart(oai.ChatCompletionContentPartInputAudioInputAudioParam{
		Data:   base64.StdEncoding.EncodeToString(a.Data),
		Format: format,
	}), nil
}

// audioFormat maps a MIME type to the input_audio format identifier.
// The chat completions API accepts only wav and mp3.
func audioFormat(mimeType string) (string, bool) {
	switch strings.ToLower(mimeType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav", true
	case "audio/mp3", "audio/mpeg":
		return "mp3", true
	}
	return "", false
}
