package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics holds instruments for the login, refresh and access check paths.
type AuthMetrics struct {
	Attempts        metric.Int64Counter
	ProviderSkipped metric.Int64Counter
	Duration        metric.Float64Histogram
	CacheLookups    metric.Int64Counter
}

// NewAuthMetrics creates the instruments on the global meter provider.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("authd/auth")

	attempts, err := meter.Int64Counter(
		"auth.attempt.count",
		metric.WithDescription("Authentication attempts by operation and outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter(
		"auth.provider.skipped.count",
		metric.WithDescription("Providers skipped because they were unavailable"),
		metric.WithUnit("{provider}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"auth.duration",
		metric.WithDescription("Authentication duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"auth.role_cache.lookup.count",
		metric.WithDescription("Role cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		Attempts:        attempts,
		ProviderSkipped: skipped,
		Duration:        duration,
		CacheLookups:    lookups,
	}, nil
}

// RecordAttempt records one login or refresh with its outcome code.
func (m *AuthMetrics) RecordAttempt(ctx context.Context, operation, outcome string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("auth.operation", operation),
		attribute.String(AttrOutcome, outcome),
	)
	m.Attempts.Add(ctx, 1, attrs)
	m.Duration.Record(ctx, durationMs, attrs)
}

// RecordProviderSkipped records a provider that failed its availability probe.
func (m *AuthMetrics) RecordProviderSkipped(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.ProviderSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrProvider, provider)))
}

// RecordCacheLookup records a role cache hit or miss.
func (m *AuthMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrCacheHit, hit)))
}

// ServerMetrics holds instruments for HTTP server telemetry.
type ServerMetrics struct {
	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ErrorCounter    metric.Int64Counter
}

// NewServerMetrics creates HTTP instruments on the global meter provider.
func NewServerMetrics() (*ServerMetrics, error) {
	meter := otel.Meter("authd/http")

	requestCounter, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"http.server.error.count",
		metric.WithDescription("Total number of HTTP server errors (5xx)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		RequestCounter:  requestCounter,
		RequestDuration: requestDuration,
		ErrorCounter:    errorCounter,
	}, nil
}

// RecordRequest records an HTTP request with method, route, status, and duration.
func (m *ServerMetrics) RecordRequest(ctx context.Context, method, route string, status int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, durationMs, attrs)
	if status >= 500 {
		m.ErrorCounter.Add(ctx, 1, attrs)
	}
}
