// Package observe provides application-wide observability primitives for
// Driftmap: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Driftmap metrics.
const meterName = "github.com/driftmap/driftmap"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ClassifyDuration tracks chunk classification latency, LLM and
	// heuristic alike.
	ClassifyDuration metric.Float64Histogram

	// InsightDuration tracks post-session analysis latency. Use with
	// attribute.String("kind", "sentiment"|"brainwave").
	InsightDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram

	// ChunkFlushes counts transcript chunks flushed out of session buffers.
	ChunkFlushes metric.Int64Counter

	// ClassifyFallbacks counts chunks that fell through every configured
	// classifier to the heuristic.
	ClassifyFallbacks metric.Int64Counter

	// NodeAppends counts nodes added to conversation maps. Use with
	// attribute.String("kind", "trunk"|"branch").
	NodeAppends metric.Int64Counter

	// PersistErrors counts failed store writes. Use with
	// attribute.String("op", ...).
	PersistErrors metric.Int64Counter

	// ActiveSessions tracks the number of live mapping sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// the classification round-trip, which is dominated by one LLM call.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ClassifyDuration, err = m.Float64Histogram("driftmap.classify.duration",
		metric.WithDescription("Latency of chunk classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InsightDuration, err = m.Float64Histogram("driftmap.insight.duration",
		metric.WithDescription("Latency of post-session insight analysis by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("driftmap.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.ChunkFlushes, err = m.Int64Counter("driftmap.chunks.flushed",
		metric.WithDescription("Total transcript chunks flushed from session buffers."),
	); err != nil {
		return nil, err
	}
	if met.ClassifyFallbacks, err = m.Int64Counter("driftmap.classify.fallbacks",
		metric.WithDescription("Total chunks classified by the heuristic after all classifiers failed."),
	); err != nil {
		return nil, err
	}
	if met.NodeAppends, err = m.Int64Counter("driftmap.nodes.appended",
		metric.WithDescription("Total nodes appended to conversation maps by kind."),
	); err != nil {
		return nil, err
	}
	if met.PersistErrors, err = m.Int64Counter("driftmap.persist.errors",
		metric.WithDescription("Total failed store writes by operation."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("driftmap.active_sessions",
		metric.WithDescription("Number of live mapping sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordClassification records one chunk classification: its latency and,
// when the heuristic had to step in, a fallback increment.
func (m *Metrics) RecordClassification(ctx context.Context, seconds float64, fallback bool) {
	m.ClassifyDuration.Record(ctx, seconds)
	if fallback {
		m.ClassifyFallbacks.Add(ctx, 1)
	}
}

// RecordNodeAppend records a node added to a conversation map.
func (m *Metrics) RecordNodeAppend(ctx context.Context, branch bool) {
	kind := "trunk"
	if branch {
		kind = "branch"
	}
	m.NodeAppends.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordPersistError records a failed store write for the given operation.
func (m *Metrics) RecordPersistError(ctx context.Context, op string) {
	m.PersistErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
