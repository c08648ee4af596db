// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing helpers, structured logging, and HTTP
// middleware for the debug endpoints.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
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

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/parlando-app/parlando"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CaptureDuration tracks how long one speech capture takes.
	CaptureDuration metric.Float64Histogram

	// ParseDuration tracks the classify + extract + fuse step.
	ParseDuration metric.Float64Histogram

	// ExecuteDuration tracks executor latency including the domain write.
	ExecuteDuration metric.Float64Histogram

	// --- Counters ---

	// CommandsParsed counts parsed commands. Use with attribute:
	//   attribute.String("intent", ...)
	CommandsParsed metric.Int64Counter

	// CommandsExecuted counts execution attempts. Use with attributes:
	//   attribute.String("intent", ...), attribute.String("status", ...)
	CommandsExecuted metric.Int64Counter

	// CaptureErrors counts capture failures. Use with attribute:
	//   attribute.String("kind", ...)
	CaptureErrors metric.Int64Counter

	// Undos counts ledger reversals.
	Undos metric.Int64Counter

	// --- Gauges ---

	// ActiveCycles tracks lifecycles currently between listen and a
	// terminal state.
	ActiveCycles metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Parsing
// is sub-millisecond; capture can take several seconds of listening.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("parlando.capture.duration",
		metric.WithDescription("Latency of one speech capture."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ParseDuration, err = m.Float64Histogram("parlando.parse.duration",
		metric.WithDescription("Latency of classification, extraction, and fusion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExecuteDuration, err = m.Float64Histogram("parlando.execute.duration",
		metric.WithDescription("Latency of command execution including the domain write."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CommandsParsed, err = m.Int64Counter("parlando.commands.parsed",
		metric.WithDescription("Total parsed commands by intent."),
	); err != nil {
		return nil, err
	}
	if met.CommandsExecuted, err = m.Int64Counter("parlando.commands.executed",
		metric.WithDescription("Total execution attempts by intent and status."),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("parlando.capture.errors",
		metric.WithDescription("Total capture failures by error kind."),
	); err != nil {
		return nil, err
	}
	if met.Undos, err = m.Int64Counter("parlando.undos",
		metric.WithDescription("Total command reversals."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveCycles, err = m.Int64UpDownCounter("parlando.active_cycles",
		metric.WithDescription("Number of command cycles currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("parlando.http.request.duration",
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

// RecordParsed records one parsed command with its intent.
func (m *Metrics) RecordParsed(ctx context.Context, intent string) {
	m.CommandsParsed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("intent", intent)),
	)
}

// RecordExecuted records one execution attempt with intent and status.
func (m *Metrics) RecordExecuted(ctx context.Context, intent, status string) {
	m.CommandsExecuted.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("intent", intent),
			attribute.String("status", status),
		),
	)
}

// RecordCaptureError records one capture failure by kind.
func (m *Metrics) RecordCaptureError(ctx context.Context, kind string) {
	m.CaptureErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
