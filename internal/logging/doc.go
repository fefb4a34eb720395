// Package logging provides structured diagnostics for coolify-mcp.
//
// # Overview
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Output to stderr only, since stdout carries protocol responses
//   - Automatic context field injection (trace_id, session.id, request.id, tool)
//   - Encoder-level secret redaction
//   - Per-level sampling (errors never sampled)
//
// # Usage
//
//	cfg, err := logging.FromSettings(appCfg.Log)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, sessionID)
//	logger.Info(ctx, "tool completed", zap.Duration("duration", d))
//
// # Secret Redaction
//
// The bearer credential is a config.Secret and never formats in clear text.
// As a second layer the encoder replaces values of sensitive keys (token,
// authorization, ...) and any string matching a bearer or Coolify token pattern.
//
//	logger.Info(ctx, "credential loaded", logging.Secret("token", tok))
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertNotContains(t, rawToken)
package logging
