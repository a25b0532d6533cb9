package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Result values for fic.acquire.total
const (
	ResultSuccess       = "success"
	ResultAbsent        = "absent"
	ResultNotConfigured = "not_configured"
)

// Metrics holds all metric instruments for token acquisition
type Metrics struct {
	// Acquisition
	AcquireTotal metric.Int64Counter

	// Issuer requests
	StageCallsTotal metric.Int64Counter
	StageDuration   metric.Float64Histogram
	ChainAborted    metric.Int64Counter
	RetryTotal      metric.Int64Counter

	// Cache
	CacheEntries metric.Int64ObservableGauge
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	serviceMeter := inst.Meter("service")
	exchangeMeter := inst.Meter("exchange")
	cacheMeter := inst.Meter("cache")

	var err error
	m.AcquireTotal, err = serviceMeter.Int64Counter(
		"fic.acquire.total",
		metric.WithDescription("Total number of token acquisitions"),
		metric.WithUnit("{acquisition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create acquire.total counter: %w", err)
	}

	m.StageCallsTotal, err = exchangeMeter.Int64Counter(
		"fic.stage.calls.total",
		metric.WithDescription("Total number of requests to token issuers"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage.calls.total counter: %w", err)
	}

	m.StageDuration, err = exchangeMeter.Float64Histogram(
		"fic.stage.duration",
		metric.WithDescription("Token issuer request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage.duration histogram: %w", err)
	}

	m.ChainAborted, err = exchangeMeter.Int64Counter(
		"fic.chain.aborted.total",
		metric.WithDescription("Number of exchange chains aborted at a stage"),
		metric.WithUnit("{chain}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain.aborted.total counter: %w", err)
	}

	m.RetryTotal, err = serviceMeter.Int64Counter(
		"fic.retry.total",
		metric.WithDescription("Number of retried acquisitions after a transient rejection"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry.total counter: %w", err)
	}

	m.CacheEntries, err = cacheMeter.Int64ObservableGauge(
		"fic.cache.entries",
		metric.WithDescription("Number of cached tokens"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache.entries gauge: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns. All of them are nil-safe
// so components can run without instrumentation.

// RecordAcquire records the outcome of one acquisition
func (m *Metrics) RecordAcquire(ctx context.Context, path, result string, cacheHit bool) {
	if m == nil {
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.AcquireTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("result", result),
		attribute.String("cache", cache),
	))
}

// RecordStageCall records a request to a token endpoint or the callback issuer.
// statusCode is 0 when no HTTP response was received.
func (m *Metrics) RecordStageCall(ctx context.Context, stage string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	m.StageCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Int("status", statusCode),
	))
	m.StageDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("stage", stage),
	))
}

// RecordChainAborted records an exchange chain that stopped at stage
func (m *Metrics) RecordChainAborted(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.ChainAborted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
	))
}

// RecordRetry records a retry after a transient rejection
func (m *Metrics) RecordRetry(ctx context.Context, stage string, statusCode int) {
	if m == nil {
		return
	}
	m.RetryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Int("status", statusCode),
	))
}
