package resilience

import (
	"context"

	"github.com/rostrum-ai/rostrum/pkg/provider/llm"
)

// JudgeFallback implements [llm.Provider] with automatic failover across
// multiple judge backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
//
// Fallback judges may run on weaker models, so scoring consistency across a
// failover is best-effort. The deterministic normalization and enforcement
// passes downstream keep the output bounded either way.
type JudgeFallback struct {
	group *FallbackGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*JudgeFallback)(nil)

// NewJudgeFallback creates a [JudgeFallback] with primary as the preferred
// backend.
func NewJudgeFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *JudgeFallback {
	return &JudgeFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional judge provider as a fallback.
func (f *JudgeFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *JudgeFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
