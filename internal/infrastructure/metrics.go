package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// PipelineMetrics holds the instruments recorded during a session
type PipelineMetrics struct {
	ProviderRequests metric.Int64Counter
	CacheLookups     metric.Int64Counter
	BarsFetched      metric.Int64Counter
	StepDuration     metric.Float64Histogram
}

// NewPipelineMetrics creates the session instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	providerRequests, err := meter.Int64Counter(
		"stockperf_provider_requests",
		metric.WithDescription("Market data provider requests by ticker and outcome"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"stockperf_cache_lookups",
		metric.WithDescription("Price cache lookups by result"),
	)
	if err != nil {
		return nil, err
	}

	barsFetched, err := meter.Int64Counter(
		"stockperf_bars_fetched",
		metric.WithDescription("Daily bars received from the provider or cache"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"stockperf_step_duration",
		metric.WithDescription("Pipeline step duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		ProviderRequests: providerRequests,
		CacheLookups:     cacheLookups,
		BarsFetched:      barsFetched,
		StepDuration:     stepDuration,
	}, nil
}

// NoopMetrics returns instruments that record nothing
func NoopMetrics() *PipelineMetrics {
	m, _ := NewPipelineMetrics(metricnoop.NewMeterProvider().Meter(InstrumentationName))
	return m
}

// RecordProviderRequest counts one provider call
func (m *PipelineMetrics) RecordProviderRequest(ctx context.Context, provider, ticker, outcome string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("ticker", ticker),
		attribute.String("outcome", outcome),
	))
}

// RecordCacheLookup counts one cache lookup; result is "hit", "miss" or "error"
func (m *PipelineMetrics) RecordCacheLookup(ctx context.Context, result string) {
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordBars counts bars received for ticker
func (m *PipelineMetrics) RecordBars(ctx context.Context, ticker string, n int) {
	m.BarsFetched.Add(ctx, int64(n), metric.WithAttributes(attribute.String("ticker", ticker)))
}

// RecordStep records how long a pipeline step took and whether it failed
func (m *PipelineMetrics) RecordStep(ctx context.Context, step string, elapsed time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	m.StepDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status),
	))
}
