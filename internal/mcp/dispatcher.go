package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coolify-mcp/internal/coolify"
	"github.com/fyrsmithlabs/coolify-mcp/internal/logging"
)

// Protocol methods.
const (
	MethodToolsList = "tools/list"
	MethodToolsCall = "tools/call"
)

// Protocol-level failures. They are reported on the error stream and never
// end the session.
var (
	ErrParse         = errors.New("parse error")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrUnknownMethod = errors.New("unknown method")
)

// Request is one decoded request line.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// CallParams are the params of a tools/call request.
type CallParams struct {
	Name      ToolName        `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ListToolsResult is the response to tools/list.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// Dispatcher routes requests to the registry. It holds no per-request state.
type Dispatcher struct {
	registry *Registry
	ops      Operations
	logger   *logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the diagnostics logger.
func WithDispatcherLogger(l *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithTracerProvider sets the tracer provider used for per-call spans.
func WithTracerProvider(tp trace.TracerProvider) DispatcherOption {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// NewDispatcher creates a Dispatcher over ops.
func NewDispatcher(ops Operations, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: NewRegistry(),
		ops:      ops,
		logger:   logging.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(d.logger.Underlying())
	}
	return d
}

// Registry returns the tool catalog.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Handle processes one request. The returned value is the response object to
// write; errors are protocol-level failures.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case MethodToolsList:
		return ListToolsResult{Tools: d.registry.Tools()}, nil
	case MethodToolsCall:
		var params CallParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, fmt.Errorf("%w: params must be an object with a name", ErrParse)
			}
		}
		res, err := d.Call(ctx, params.Name, params.Arguments)
		if err != nil {
			return nil, err
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, truncate(req.Method, 64))
	}
}

// Call invokes a tool and wraps its result as text content.
func (d *Dispatcher) Call(ctx context.Context, name ToolName, args json.RawMessage) (*mcpsdk.CallToolResult, error) {
	if _, ok := d.registry.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, truncate(string(name), 64))
	}

	ctx = logging.WithTool(ctx, string(name))
	ctx, span := d.tracer.Start(ctx, "tools/call "+string(name),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("mcp.tool", string(name))),
	)
	defer span.End()

	d.metrics.IncrementActive(ctx, string(name))
	defer d.metrics.DecrementActive(ctx, string(name))

	start := time.Now()
	res, err := d.registry.Invoke(ctx, d.ops, name, args)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.metrics.RecordInvocation(ctx, string(name), elapsed, res.Err)

	span.SetAttributes(attribute.Bool("mcp.success", res.Success))
	if !res.Success {
		span.SetStatus(codes.Error, res.Message)
	}

	d.logger.Debug(ctx, "tool call completed",
		zap.Bool("success", res.Success),
		zap.Duration("duration", elapsed),
	)

	return toCallResult(res)
}

// toCallResult renders res as indented JSON text content. isError mirrors
// success so clients can tell failures apart without parsing the text.
func toCallResult(res coolify.Result) (*mcpsdk.CallToolResult, error) {
	text, err := res.Text()
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: !res.Success,
	}, nil
}
