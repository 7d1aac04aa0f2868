// Package observe provides application-wide observability primitives for
// rostrum: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all rostrum metrics.
const meterName = "github.com/rostrum-ai/rostrum"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscriptionDuration tracks batch transcription latency.
	TranscriptionDuration metric.Float64Histogram

	// JudgeDuration tracks judge model inference latency.
	JudgeDuration metric.Float64Histogram

	// RepairDuration tracks the format-only JSON repair call latency.
	RepairDuration metric.Float64Histogram

	// AnalysisDuration tracks end-to-end analysis latency, from audio in to
	// result envelope out.
	AnalysisDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// Classifications counts final speech classifications. Use with attribute:
	//   attribute.String("classification", ...)
	Classifications metric.Int64Counter

	// ParseFailures counts judge-output parse failures. Use with attributes:
	//   attribute.String("stage", "local"|"repair"), attribute.Bool("recovered", ...)
	ParseFailures metric.Int64Counter

	// CapsApplied counts analyses where the enforcer reduced a model score.
	// Use with attribute: attribute.String("cause", ...)
	CapsApplied metric.Int64Counter

	// SuspiciousTranscripts counts transcripts flagged by the repeated-hash
	// integrity check.
	SuspiciousTranscripts metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveAnalyses tracks the number of in-flight analysis requests.
	ActiveAnalyses metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Judge and
// transcription calls over a full recording run tens of seconds, so the upper
// buckets stretch well past the voice-assistant norm.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("rostrum.transcription.duration",
		metric.WithDescription("Latency of batch speech transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.JudgeDuration, err = m.Float64Histogram("rostrum.judge.duration",
		metric.WithDescription("Latency of the judge model call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RepairDuration, err = m.Float64Histogram("rostrum.repair.duration",
		metric.WithDescription("Latency of the format-only JSON repair call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("rostrum.analysis.duration",
		metric.WithDescription("End-to-end analysis latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("rostrum.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.Classifications, err = m.Int64Counter("rostrum.classifications",
		metric.WithDescription("Final speech classifications by category."),
	); err != nil {
		return nil, err
	}
	if met.ParseFailures, err = m.Int64Counter("rostrum.parse.failures",
		metric.WithDescription("Judge-output parse failures by stage and recovery outcome."),
	); err != nil {
		return nil, err
	}
	if met.CapsApplied, err = m.Int64Counter("rostrum.caps.applied",
		metric.WithDescription("Analyses where the rubric enforcer reduced a model score, by cause."),
	); err != nil {
		return nil, err
	}
	if met.SuspiciousTranscripts, err = m.Int64Counter("rostrum.transcripts.suspicious",
		metric.WithDescription("Transcripts flagged by the repeated-hash integrity check."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("rostrum.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveAnalyses, err = m.Int64UpDownCounter("rostrum.active_analyses",
		metric.WithDescription("Number of in-flight analysis requests."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("rostrum.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordClassification records a final classification counter increment.
func (m *Metrics) RecordClassification(ctx context.Context, classification string) {
	m.Classifications.Add(ctx, 1,
		metric.WithAttributes(attribute.String("classification", classification)),
	)
}

// RecordParseFailure records a parse failure by stage ("local" or "repair")
// and whether the pipeline ultimately recovered a usable object.
func (m *Metrics) RecordParseFailure(ctx context.Context, stage string, recovered bool) {
	m.ParseFailures.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.Bool("recovered", recovered),
		),
	)
}

// RecordCapApplied records an enforcer score reduction by cause.
func (m *Metrics) RecordCapApplied(ctx context.Context, cause string) {
	m.CapsApplied.Add(ctx, 1,
		metric.WithAttributes(attribute.String("cause", cause)),
	)
}
