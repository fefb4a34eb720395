package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/coolify-mcp/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Level = TraceLevel
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	buf := &bytes.Buffer{}
	logger, err := NewLogger(cfg, zapcore.AddSync(buf))
	require.NoError(t, err)
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger_WritesJSON(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	logger.Info(context.Background(), "server started", zap.Int("tools", 11))
	require.NoError(t, logger.Sync())

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "server started", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "coolify-mcp", lines[0]["service"])
	assert.EqualValues(t, 11, lines[0]["tools"])
	assert.Contains(t, lines[0], "ts")
}

func TestNewLogger_TraceLevelName(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	logger.Trace(context.Background(), "raw line")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "trace", lines[0]["level"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Level = zapcore.WarnLevel })
	ctx := context.Background()

	logger.Trace(ctx, "t")
	logger.Debug(ctx, "d")
	logger.Info(ctx, "i")
	logger.Warn(ctx, "w")
	logger.Error(ctx, "e")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
	assert.False(t, logger.Enabled(zapcore.InfoLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestLogger_Redaction(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)
	ctx := context.Background()
	raw := "1|abcdefghijklmnopqrstuvwxyz"

	logger.Info(ctx, "by key", zap.String("token", raw))
	logger.Info(ctx, "by header", zap.String("header", "Bearer "+raw))
	logger.Info(ctx, "by shape", zap.String("value", raw))
	logger.Info(ctx, "secret type", Secret("credential", config.Secret(raw)))
	logger.Info(ctx, "plain", zap.String("endpoint", "/applications"))

	assert.NotContains(t, buf.String(), "abcdefghijklmnopqrstuvwxyz")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 5)
	assert.Equal(t, "[REDACTED]", lines[0]["token"])
	assert.Equal(t, "[REDACTED:pattern]", lines[1]["header"])
	assert.Equal(t, "[REDACTED:pattern]", lines[2]["value"])
	assert.Equal(t, "[REDACTED]", lines[3]["credential"])
	assert.Equal(t, "/applications", lines[4]["endpoint"])
}

func TestLogger_RedactionCoversContextAndCallFields(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)
	raw := "1|abcdefghijklmnopqrstuvwxyz"

	logger.With(zap.String("token", raw)).Info(context.Background(), "request",
		zap.String("value", raw),
	)

	assert.NotContains(t, buf.String(), "abcdefghijklmnopqrstuvwxyz")
	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "[REDACTED]", lines[0]["token"])
	assert.Equal(t, "[REDACTED:pattern]", lines[0]["value"])
}

func TestLogger_RedactionDisabled(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Redaction.Enabled = false })

	logger.Info(context.Background(), "m", zap.String("token", "visible"))

	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_SecretFieldRecordsLength(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "loaded", Secret("token", config.Secret("abcdefghijklmnopqrstu")))

	tl.AssertField(t, "loaded", "token", "[REDACTED:21]")
	tl.AssertNotContains(t, "abcdefghijklmnopqrstu")
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithRequestID(ctx, "req_2")
	ctx = WithTool(ctx, "coolify_get_application")

	tl.Info(ctx, "dispatch")

	tl.AssertField(t, "dispatch", "trace_id", "4bf92f3577b34da6a3ce929d0e0e4736")
	tl.AssertField(t, "dispatch", "span_id", "00f067aa0ba902b7")
	tl.AssertField(t, "dispatch", "session.id", "sess-1")
	tl.AssertField(t, "dispatch", "request.id", "req_2")
	tl.AssertField(t, "dispatch", "tool", "coolify_get_application")
}

func TestContext_InvalidIDsIgnored(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, SessionIDFromContext(WithSessionID(ctx, "")))
	assert.Empty(t, RequestIDFromContext(WithRequestID(ctx, "has space")))
	assert.Empty(t, ToolFromContext(WithTool(ctx, strings.Repeat("a", maxIDLen+1))))
	assert.Empty(t, ContextFields(ctx))
}

func TestContext_LoggerRoundTrip(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)

	assert.Same(t, tl.Logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestLogger_WithAndNamed(t *testing.T) {
	tl := NewTestLogger()

	child := tl.Named("session").With(zap.String("transport", "line"))
	child.Warn(context.Background(), "slow upstream")

	entries := tl.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session", entries[0].LoggerName)
	assert.Equal(t, "line", entries[0].ContextMap()["transport"])
}

func TestSampling_PerLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) {
		c.Sampling = SamplingConfig{
			Enabled: true,
			Tick:    config.Duration(time.Hour),
			Levels: map[zapcore.Level]LevelSamplingConfig{
				zapcore.DebugLevel: {Initial: 2, Thereafter: 0},
				zapcore.ErrorLevel: {Initial: 1, Thereafter: 0},
			},
		}
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		logger.Debug(ctx, "poll")
		logger.Info(ctx, "unsampled")
		logger.Error(ctx, "failure")
	}

	var debug, info, errs int
	for _, line := range decodeLines(t, buf) {
		switch line["msg"] {
		case "poll":
			debug++
		case "unsampled":
			info++
		case "failure":
			errs++
		}
	}
	assert.Equal(t, 2, debug)
	assert.Equal(t, 5, info)
	assert.Equal(t, 5, errs)
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"trace":  TraceLevel,
		"debug":  zapcore.DebugLevel,
		" INFO ": zapcore.InfoLevel,
		"warn":   zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"":       zapcore.InfoLevel,
	}
	for in, want := range tests {
		got, err := LevelFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := LevelFromString("loud")
	assert.Error(t, err)
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromSettings(config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = FromSettings(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "text" }},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }},
		{"negative skip", func(c *Config) { c.Caller.Skip = -1 }},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }},
		{"long pattern", func(c *Config) { c.Redaction.Patterns = []string{strings.Repeat("a", maxPatternLen+1)} }},
		{"empty field key", func(c *Config) { c.Fields = map[string]string{"": "x"} }},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"k": ""} }},
	}
	require.NoError(t, NewDefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
