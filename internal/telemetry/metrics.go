package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/bookwell/customer-sync/sync"
)

// Customer processing actions recorded on the customers-processed counter
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
	ActionFailed  = "failed"
)

// SyncMetrics holds the OpenTelemetry instruments for sync run metrics
type SyncMetrics struct {
	runDuration        metric.Float64Histogram
	customersProcessed metric.Int64Counter
	lastRunTimestamp   metric.Int64Gauge
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"custsync_run_duration_seconds",
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	customersProcessed, err := meter.Int64Counter(
		"custsync_customers_processed_total",
		metric.WithDescription("Number of customers processed per action"),
		metric.WithUnit("{customer}"),
	)
	if err != nil {
		return nil, err
	}

	lastRunTimestamp, err := meter.Int64Gauge(
		"custsync_last_run_timestamp_seconds",
		metric.WithDescription("Unix timestamp of the last sync run attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runDuration:        runDuration,
		customersProcessed: customersProcessed,
		lastRunTimestamp:   lastRunTimestamp,
	}, nil
}

// RecordRunDuration records the duration and outcome of a sync run
func (m *SyncMetrics) RecordRunDuration(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.runDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCustomersProcessed records how many customers were handled with a given action
func (m *SyncMetrics) RecordCustomersProcessed(ctx context.Context, action string, count int64) {
	if m == nil || m.customersProcessed == nil || count == 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("action", action),
	}

	m.customersProcessed.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordLastRun records the wall-clock time of the latest run attempt
func (m *SyncMetrics) RecordLastRun(ctx context.Context, at time.Time) {
	if m == nil || m.lastRunTimestamp == nil {
		return
	}

	m.lastRunTimestamp.Record(ctx, at.Unix())
}
