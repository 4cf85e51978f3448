package classify

import (
	"context"
	"log/slog"

	"github.com/driftmap/driftmap/internal/resilience"
)

// Adapter chains classifiers behind per-entry circuit breakers and guarantees
// a verdict: when every chained classifier fails, the local heuristic decides.
// Classify therefore never returns an error and a session is never blocked on
// a degraded backend.
type Adapter struct {
	chain     *resilience.Chain[Classifier]
	heuristic Heuristic
}

// NewAdapter creates an adapter with primary as the preferred classifier.
func NewAdapter(primaryName string, primary Classifier, breaker resilience.BreakerConfig) *Adapter {
	return &Adapter{chain: resilience.NewChain(primaryName, primary, breaker)}
}

// AddFallback registers an additional classifier, tried after all earlier
// ones. The built-in heuristic always remains the terminal fallback.
func (a *Adapter) AddFallback(name string, c Classifier) *Adapter {
	a.chain.AddFallback(name, c)
	return a
}

// Classify returns a verdict for the chunk. Chained classifiers are tried in
// order; if all fail the heuristic result is returned along with fallback=true.
func (a *Adapter) Classify(ctx context.Context, chunk, previousSummary string) (result Result, fallback bool) {
	result, err := resilience.Execute(a.chain, func(c Classifier) (Result, error) {
		return c.Classify(ctx, chunk, previousSummary)
	})
	if err == nil {
		return result, false
	}

	slog.Warn("all classifiers failed, using heuristic", "error", err)
	result, _ = a.heuristic.Classify(ctx, chunk, previousSummary)
	return result, true
}
