package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every chain entry fails or is circuit-open.
var ErrAllFailed = errors.New("all providers failed")

// chainEntry pairs a provider with its dedicated breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// Chain tries a primary provider first and falls back through the remaining
// entries in registration order. Each entry gets its own circuit breaker so a
// degraded primary is skipped outright once its breaker trips.
//
// The entry list is fixed after construction; Execute calls may run
// concurrently.
type Chain[T any] struct {
	entries []chainEntry[T]
	breaker BreakerConfig
}

// NewChain creates a chain with primary as its first entry. breaker is the
// per-entry breaker template; its Name field is overwritten per entry.
func NewChain[T any](primaryName string, primary T, breaker BreakerConfig) *Chain[T] {
	c := &Chain[T]{breaker: breaker}
	c.add(primaryName, primary)
	return c
}

// AddFallback appends a fallback entry, tried after all earlier entries.
func (c *Chain[T]) AddFallback(name string, value T) *Chain[T] {
	c.add(name, value)
	return c
}

func (c *Chain[T]) add(name string, value T) {
	cfg := c.breaker
	cfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cfg),
	})
}

// Names returns the entry names in try order.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Execute runs fn against each entry until one succeeds. Entries with open
// breakers are skipped. When every entry fails the last error is wrapped in
// [ErrAllFailed].
func (c *Chain[T]) Execute(fn func(T) error) error {
	_, err := Execute(c, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// Execute runs fn against each chain entry until one succeeds and returns its
// result. A package-level function because methods cannot carry their own
// type parameters.
func Execute[T, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var lastErr error
	for i := range c.entries {
		entry := &c.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(entry.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("provider skipped, circuit open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next",
				"provider", entry.name, "error", err)
		}
	}
	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
