// Package observability provides OpenTelemetry-based tracing and metrics for
// broker operations.
package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes for broker operations
const (
	AttrTopic        = "mq.topic"
	AttrSessionID    = "mq.session.id"
	AttrMessageID    = "mq.message.id"
	AttrMessageCount = "mq.message.count"
	AttrMessageTTL   = "mq.message.ttl_seconds"
	AttrErrorCode    = "mq.error.code"
)

// TracerConfig configures the broker tracer
type TracerConfig struct {
	ServiceName      string
	ServiceVersion   string
	Environment      string
	SampleRate       float64
	ExporterEndpoint string
	ExporterType     ExporterType
}

// ExporterType defines the type of trace exporter
type ExporterType string

const (
	ExporterOTLP    ExporterType = "otlp"
	ExporterConsole ExporterType = "console"
	ExporterNone    ExporterType = "none"
)

// DefaultTracerConfig returns default configuration
func DefaultTracerConfig() *TracerConfig {
	return &TracerConfig{
		ServiceName:    "httpmq",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		SampleRate:     1.0,
		ExporterType:   ExporterNone,
	}
}

// BrokerTracer provides tracing for broker operations
type BrokerTracer struct {
	tracer      trace.Tracer
	meter       metric.Meter
	config      *TracerConfig
	initialized bool

	// Metrics
	publishCounter metric.Int64Counter
	receiveCounter metric.Int64Counter
	deliverCounter metric.Int64Counter
	ackCounter     metric.Int64Counter
	sweepCounter   metric.Int64Counter
	errorCounter   metric.Int64Counter
}

// NewBrokerTracer creates a new broker tracer
func NewBrokerTracer(config *TracerConfig) (*BrokerTracer, error) {
	if config == nil {
		config = DefaultTracerConfig()
	}

	tracer := otel.Tracer(
		config.ServiceName,
		trace.WithInstrumentationVersion(config.ServiceVersion),
	)

	meter := otel.Meter(
		config.ServiceName,
		metric.WithInstrumentationVersion(config.ServiceVersion),
	)

	t := &BrokerTracer{
		tracer: tracer,
		meter:  meter,
		config: config,
	}

	if err := t.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	t.initialized = true
	return t, nil
}

func (t *BrokerTracer) initMetrics() error {
	var err error

	t.publishCounter, err = t.meter.Int64Counter(
		"mq.publishes.total",
		metric.WithDescription("Total messages published"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	t.receiveCounter, err = t.meter.Int64Counter(
		"mq.receives.total",
		metric.WithDescription("Total receive polls"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return err
	}

	t.deliverCounter, err = t.meter.Int64Counter(
		"mq.deliveries.total",
		metric.WithDescription("Total message copies delivered"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	t.ackCounter, err = t.meter.Int64Counter(
		"mq.acknowledgements.total",
		metric.WithDescription("Total acknowledgements"),
		metric.WithUnit("{ack}"),
	)
	if err != nil {
		return err
	}

	t.sweepCounter, err = t.meter.Int64Counter(
		"mq.swept.total",
		metric.WithDescription("Total state entries removed by expiry sweeps"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	t.errorCounter, err = t.meter.Int64Counter(
		"mq.errors.total",
		metric.WithDescription("Total failed broker operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// StartOperation starts a span for a broker operation such as "mq.publish".
func (t *BrokerTracer) StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, operation,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndOperation completes an operation span, recording the error if any.
func (t *BrokerTracer) EndOperation(ctx context.Context, span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.errorCounter.Add(ctx, 1)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordPublish counts one published message.
func (t *BrokerTracer) RecordPublish(ctx context.Context, topic string) {
	t.publishCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTopic, topic),
	))
}

// RecordReceive counts one receive poll and the copies it delivered.
func (t *BrokerTracer) RecordReceive(ctx context.Context, delivered int) {
	t.receiveCounter.Add(ctx, 1)
	if delivered > 0 {
		t.deliverCounter.Add(ctx, int64(delivered))
	}
}

// RecordAcknowledge counts one acknowledgement.
func (t *BrokerTracer) RecordAcknowledge(ctx context.Context, topic string) {
	t.ackCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTopic, topic),
	))
}

// RecordSweep counts the entries dropped by one expiry sweep.
func (t *BrokerTracer) RecordSweep(ctx context.Context, sessionsSwept, messagesSwept int) {
	if sessionsSwept > 0 {
		t.sweepCounter.Add(ctx, int64(sessionsSwept), metric.WithAttributes(
			attribute.String("mq.entry.kind", "session"),
		))
	}
	if messagesSwept > 0 {
		t.sweepCounter.Add(ctx, int64(messagesSwept), metric.WithAttributes(
			attribute.String("mq.entry.kind", "message"),
		))
	}
}

// Global tracer instance
var (
	globalTracer *BrokerTracer
	tracerOnce   sync.Once
)

// InitGlobalTracer initializes the global tracer
func InitGlobalTracer(config *TracerConfig) error {
	var initErr error
	tracerOnce.Do(func() {
		globalTracer, initErr = NewBrokerTracer(config)
	})
	return initErr
}

// GetTracer returns the global tracer
func GetTracer() *BrokerTracer {
	if globalTracer == nil {
		// Initialize with defaults if not set
		globalTracer, _ = NewBrokerTracer(nil)
	}
	return globalTracer
}
