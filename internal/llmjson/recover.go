package llmjson

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rostrum-ai/rostrum/pkg/provider/llm"
)

// repairSystemPrompt constrains the repair call to formatting only. The
// temperature-0 call receives the target shape and the invalid output and
// must not alter substantive values.
const repairSystemPrompt = "You fix malformed JSON. Return ONLY the corrected JSON object. " +
	"Fix formatting, escaping, and structure errors. Do NOT alter, add, or remove any values. " +
	"Do not add commentary or markdown fences."

// repairMaxTokens bounds the repair response. The judge schema decodes to a
// few KB of JSON, so this leaves ample headroom without letting a confused
// model ramble.
const repairMaxTokens = 4096

// Recoverer decodes model output with an optional one-shot model repair
// fallback. A nil provider disables the repair stage; the Recoverer then
// behaves like [Decode] but reports metrics and typed failures.
type Recoverer struct {
	provider llm.Provider
	schema   string
}

// NewRecoverer returns a Recoverer. provider may be nil to disable the model
// repair pass. schema is a compact description of the target shape shown to
// the repair model; it is ignored when provider is nil.
func NewRecoverer(provider llm.Provider, schema string) *Recoverer {
	return &Recoverer{provider: provider, schema: schema}
}

// Decode recovers a JSON object from raw into v.
//
// Stage one is the local pass: fence stripping, brace slicing, direct parse,
// and the char-level string repair retry. If that fails and a provider is
// configured, stage two issues one format-only model call at temperature 0
// and runs the local pass on its response.
//
// On success the returned Metrics report how much recovery was needed. On
// total failure the error is a [*ParseFailure]; callers must surface it, not
// substitute defaults.
func (r *Recoverer) Decode(ctx context.Context, raw string, v any) (Metrics, error) {
	localErr := Decode(raw, v)
	if localErr == nil {
		return Metrics{ParseFailCount: 0, RepairUsed: false}, nil
	}

	if r.provider == nil {
		return Metrics{}, &ParseFailure{Raw: raw, FailCount: 1, RepairUsed: false, Err: localErr}
	}

	slog.Debug("llmjson: local decode failed, attempting model repair", "error", localErr)

	repaired, err := r.repairCall(ctx, raw)
	if err != nil {
		return Metrics{}, &ParseFailure{
			Raw:        raw,
			FailCount:  2,
			RepairUsed: true,
			Err:        fmt.Errorf("repair call: %w", err),
		}
	}

	if err := Decode(repaired, v); err != nil {
		return Metrics{}, &ParseFailure{Raw: raw, FailCount: 2, RepairUsed: true, Err: err}
	}
	return Metrics{ParseFailCount: 1, RepairUsed: true}, nil
}

func (r *Recoverer) repairCall(ctx context.Context, raw string) (string, error) {
	prompt := fmt.Sprintf("Target JSON shape:\n%s\n\nInvalid output to fix:\n%s", r.schema, raw)
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: repairSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   repairMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
