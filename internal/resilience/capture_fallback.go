package resilience

import (
	"context"

	"github.com/driftmap/driftmap/pkg/capture"
)

// CaptureFallback implements [capture.Provider] with automatic failover
// across capture backends, each behind its own circuit breaker. The usual
// arrangement is the browser relay first and a server-side transcriber
// second.
type CaptureFallback struct {
	chain *Chain[capture.Provider]
}

var _ capture.Provider = (*CaptureFallback)(nil)

// NewCaptureFallback creates a CaptureFallback with primary as the preferred
// backend.
func NewCaptureFallback(primaryName string, primary capture.Provider, cfg BreakerConfig) *CaptureFallback {
	return &CaptureFallback{
		chain: NewChain(primaryName, primary, cfg),
	}
}

// AddFallback registers an additional capture backend.
func (f *CaptureFallback) AddFallback(name string, provider capture.Provider) *CaptureFallback {
	f.chain.AddFallback(name, provider)
	return f
}

// StartSession opens a capture session against the first healthy backend.
func (f *CaptureFallback) StartSession(ctx context.Context, cfg capture.Config) (capture.Session, error) {
	return Execute(f.chain, func(p capture.Provider) (capture.Session, error) {
		return p.StartSession(ctx, cfg)
	})
}
