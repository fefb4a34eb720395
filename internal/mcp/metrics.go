package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coolify-mcp/internal/coolify"
	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
)

const instrumentationName = "github.com/fyrsmithlabs/coolify-mcp/internal/mcp"

// Metrics holds all tool-related metrics.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
	protocolErrors metric.Int64Counter
}

// NewMetrics creates a Metrics instance on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(instrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{meter: meter, logger: logger}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.invocations, err = m.meter.Int64Counter(
		"coolify_mcp.tool.invocations_total",
		metric.WithDescription("Total number of tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create invocations counter", zap.Error(err))
	}

	// Upstream calls dominate; the 30s client timeout is the last bucket.
	m.duration, err = m.meter.Float64Histogram(
		"coolify_mcp.tool.duration_seconds",
		metric.WithDescription("Duration of tool invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"coolify_mcp.tool.errors_total",
		metric.WithDescription("Total number of failed tool invocations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"coolify_mcp.tool.active_requests",
		metric.WithDescription("Number of tool invocations in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}

	m.protocolErrors, err = m.meter.Int64Counter(
		"coolify_mcp.session.protocol_errors_total",
		metric.WithDescription("Request lines rejected before reaching a tool"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create protocol errors counter", zap.Error(err))
	}
}

// RecordInvocation records one tool invocation. err is the failure carried
// by the result, nil on success.
func (m *Metrics) RecordInvocation(ctx context.Context, toolName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("tool", toolName),
	}

	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	if err != nil && m.errors != nil {
		errorAttrs := append(attrs, attribute.String("reason", categorizeError(err)))
		m.errors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
}

// RecordProtocolError counts a request rejected by the session or dispatcher.
func (m *Metrics) RecordProtocolError(ctx context.Context, err error) {
	if m.protocolErrors != nil {
		m.protocolErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", protocolReason(err)),
		))
	}
}

// IncrementActive increments the active requests counter.
func (m *Metrics) IncrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", toolName),
		))
	}
}

// DecrementActive decrements the active requests counter.
func (m *Metrics) DecrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, -1, metric.WithAttributes(
			attribute.String("tool", toolName),
		))
	}
}

// categorizeError maps a result failure to a low-cardinality reason.
func categorizeError(err error) string {
	if err == nil {
		return ""
	}
	if kind, ok := coolify.KindOf(err); ok {
		return kind.String()
	}
	switch {
	case errors.Is(err, sanitize.ErrValidation):
		return "validation_error"
	case errors.Is(err, coolify.ErrWebhooksGlobalScope):
		return "unsupported"
	default:
		return "internal_error"
	}
}

func protocolReason(err error) string {
	switch {
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, ErrUnknownMethod):
		return "unknown_method"
	default:
		return "internal_error"
	}
}
