package resilience

import (
	"context"

	"github.com/driftmap/driftmap/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across
// multiple completion backends. Each backend has its own circuit breaker;
// when the primary fails or its breaker is open, the next healthy fallback is
// tried.
type LLMFallback struct {
	chain *Chain[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(primaryName string, primary llm.Provider, cfg BreakerConfig) *LLMFallback {
	return &LLMFallback{chain: NewChain(primaryName, primary, cfg)}
}

// AddFallback registers an additional backend, tried after all earlier ones.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) *LLMFallback {
	f.chain.AddFallback(name, provider)
	return f
}

// Complete sends the request to the first healthy backend and returns its
// response.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Execute(f.chain, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
