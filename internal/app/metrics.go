package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records delivery pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
// Without a registered OTel meter provider the OTel recorder is itself a
// no-op, so wiring it unconditionally is safe.
type MetricsRecorder interface {
	// RecordBuffered records a durably persisted record.
	RecordBuffered(ctx context.Context, sizeBytes int64)

	// RecordBatchSent records an accepted batch submission.
	RecordBatchSent(ctx context.Context, records int, bytes int64, duration time.Duration)

	// RecordSendFailure records a failed batch submission.
	RecordSendFailure(ctx context.Context, records int, permanent bool)

	// RecordRecovered records records delivered by a recovery sweep.
	RecordRecovered(ctx context.Context, records int)
}

// NoopMetrics discards all metrics.
type NoopMetrics struct{}

func (NoopMetrics) RecordBuffered(context.Context, int64)                       {}
func (NoopMetrics) RecordBatchSent(context.Context, int, int64, time.Duration) {}
func (NoopMetrics) RecordSendFailure(context.Context, int, bool)               {}
func (NoopMetrics) RecordRecovered(context.Context, int)                       {}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	recordsBuffered  metric.Int64Counter
	bytesBuffered    metric.Int64Counter
	batchesSent      metric.Int64Counter
	recordsSent      metric.Int64Counter
	sendFailures     metric.Int64Counter
	recordsRecovered metric.Int64Counter
	sendLatency      metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// NewMetricsRecorder returns the process-wide OTel metrics recorder.
func NewMetricsRecorder() (MetricsRecorder, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	if defaultMetricsErr != nil {
		return nil, defaultMetricsErr
	}
	return defaultMetrics, nil
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("edgebuffer")

	recordsBuffered, err := meter.Int64Counter("edgebuffer.records.buffered",
		metric.WithDescription("Records durably persisted to the local store"),
	)
	if err != nil {
		return nil, err
	}

	bytesBuffered, err := meter.Int64Counter("edgebuffer.bytes.buffered",
		metric.WithDescription("Payload bytes durably persisted"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	batchesSent, err := meter.Int64Counter("edgebuffer.batches.sent",
		metric.WithDescription("Batch submissions accepted by the endpoint"),
	)
	if err != nil {
		return nil, err
	}

	recordsSent, err := meter.Int64Counter("edgebuffer.records.sent",
		metric.WithDescription("Records confirmed delivered"),
	)
	if err != nil {
		return nil, err
	}

	sendFailures, err := meter.Int64Counter("edgebuffer.send.failures",
		metric.WithDescription("Failed batch submissions"),
	)
	if err != nil {
		return nil, err
	}

	recordsRecovered, err := meter.Int64Counter("edgebuffer.records.recovered",
		metric.WithDescription("Records delivered by recovery sweeps"),
	)
	if err != nil {
		return nil, err
	}

	sendLatency, err := meter.Float64Histogram("edgebuffer.send.latency_ms",
		metric.WithDescription("Batch submission latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		recordsBuffered:  recordsBuffered,
		bytesBuffered:    bytesBuffered,
		batchesSent:      batchesSent,
		recordsSent:      recordsSent,
		sendFailures:     sendFailures,
		recordsRecovered: recordsRecovered,
		sendLatency:      sendLatency,
	}, nil
}

func (m *otelMetrics) RecordBuffered(ctx context.Context, sizeBytes int64) {
	m.recordsBuffered.Add(ctx, 1)
	m.bytesBuffered.Add(ctx, sizeBytes)
}

func (m *otelMetrics) RecordBatchSent(ctx context.Context, records int, bytes int64, duration time.Duration) {
	m.batchesSent.Add(ctx, 1)
	m.recordsSent.Add(ctx, int64(records))
	m.sendLatency.Record(ctx, float64(duration.Milliseconds()))
}

func (m *otelMetrics) RecordSendFailure(ctx context.Context, records int, permanent bool) {
	m.sendFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("permanent", permanent),
		attribute.Int("records", records),
	))
}

func (m *otelMetrics) RecordRecovered(ctx context.Context, records int) {
	m.recordsRecovered.Add(ctx, int64(records))
}
