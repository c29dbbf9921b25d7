// Package observe provides application-wide observability primitives for
// Quotevox: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all Quotevox metrics.
const meterName = "github.com/quotevox/quotevox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// InterpretationDuration tracks how long turning one final transcript
	// into an answer took. Use with attributes:
	//   attribute.String("input_type", ...), attribute.String("outcome", ...)
	InterpretationDuration metric.Float64Histogram

	// ProviderDuration tracks speech and LLM provider request latency. Use
	// with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// ResolverMatches counts option resolutions by the tier that claimed
	// the option. Use with attribute: attribute.String("tier", ...)
	ResolverMatches metric.Int64Counter

	// SpellingCommands counts spelling edit commands by kind. Use with
	// attribute: attribute.String("command", ...)
	SpellingCommands metric.Int64Counter

	// EscalationEvents counts prompt escalation transitions. Use with
	// attribute: attribute.String("kind", ...) — reprompt, hold, reminder
	// or resume.
	EscalationEvents metric.Int64Counter

	// AnswersSubmitted counts completed answers by interpretation source.
	// Use with attribute: attribute.String("source", ...)
	AnswersSubmitted metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live caller sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.InterpretationDuration, err = m.Float64Histogram("quotevox.interpretation.duration",
		metric.WithDescription("Latency of interpreting one final transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("quotevox.provider.duration",
		metric.WithDescription("Latency of provider requests by provider and kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("quotevox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ResolverMatches, err = m.Int64Counter("quotevox.resolver.matches",
		metric.WithDescription("Total option resolutions by matching tier."),
	); err != nil {
		return nil, err
	}
	if met.SpellingCommands, err = m.Int64Counter("quotevox.spelling.commands",
		metric.WithDescription("Total spelling edit commands by kind."),
	); err != nil {
		return nil, err
	}
	if met.EscalationEvents, err = m.Int64Counter("quotevox.escalation.events",
		metric.WithDescription("Total prompt escalation transitions by kind."),
	); err != nil {
		return nil, err
	}
	if met.AnswersSubmitted, err = m.Int64Counter("quotevox.answers.submitted",
		metric.WithDescription("Total completed answers by interpretation source."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("quotevox.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("quotevox.active_sessions",
		metric.WithDescription("Number of live caller sessions."),
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

// RecordInterpretation records the latency of interpreting one transcript
// with the standard attribute set.
func (m *Metrics) RecordInterpretation(ctx context.Context, inputType, outcome string, seconds float64) {
	m.InterpretationDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("input_type", inputType),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordProviderCall records one provider request's latency.
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, kind string, seconds float64) {
	m.ProviderDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
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

// RecordResolverMatch records which tier claimed an option.
func (m *Metrics) RecordResolverMatch(ctx context.Context, tier string) {
	m.ResolverMatches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordSpellingCommand records one spelling edit command.
func (m *Metrics) RecordSpellingCommand(ctx context.Context, command string) {
	m.SpellingCommands.Add(ctx, 1,
		metric.WithAttributes(attribute.String("command", command)),
	)
}

// RecordEscalation records one prompt escalation transition.
func (m *Metrics) RecordEscalation(ctx context.Context, kind string) {
	m.EscalationEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordAnswer records one completed answer by interpretation source.
func (m *Metrics) RecordAnswer(ctx context.Context, source string) {
	m.AnswersSubmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}
