package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/coolify-mcp/internal/config"
	"github.com/fyrsmithlabs/coolify-mcp/internal/coolify"
	"github.com/fyrsmithlabs/coolify-mcp/internal/logging"
	"github.com/fyrsmithlabs/coolify-mcp/internal/mcp"
	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
	"github.com/fyrsmithlabs/coolify-mcp/internal/secrets"
	"github.com/fyrsmithlabs/coolify-mcp/internal/telemetry"
)

const (
	transportLine = "line"
	transportSDK  = "sdk"
)

type serveOptions struct {
	configPath string
	transport  string
}

func newServeCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP requests on stdin/stdout",
		Long: `Serve MCP requests on stdin/stdout until stdin is closed.

Transports:
  line  newline-delimited {"method", "params"} requests (default)
  sdk   JSON-RPC 2.0 MCP with initialize handshake`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, stdin, stdout, stderr)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/coolify-mcp/config.yaml)")
	cmd.Flags().StringVar(&opts.transport, "transport", transportLine, "protocol transport: line or sdk")
	return cmd
}

// runServe wires the adapter and blocks until the session ends. Startup
// failures are reported with a generic message; details go to the debug log
// when a logger is available.
func runServe(ctx context.Context, opts *serveOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	if opts.transport != transportLine && opts.transport != transportSDK {
		return fmt.Errorf("unknown transport %q (expected %s or %s)", opts.transport, transportLine, transportSDK)
	}

	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return startupError(err)
	}

	logCfg, err := logging.FromSettings(cfg.Log)
	if err != nil {
		return startupError(err)
	}
	logger, err := logging.NewLogger(logCfg, zapcore.AddSync(stderr))
	if err != nil {
		return startupError(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	svc, err := newService(cfg, logger)
	if err != nil {
		logger.Debug(ctx, "startup failed", zap.Error(err))
		return startupError(err)
	}

	// Providers must be global before the dispatcher creates its instruments.
	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version),
		telemetry.WithLogger(logger.Named("telemetry")),
	)
	if err != nil {
		logger.Debug(ctx, "startup failed", zap.Error(err))
		return startupError(err)
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}()

	dispatcher := mcp.NewDispatcher(svc,
		mcp.WithDispatcherLogger(logger.Named("dispatcher")),
		mcp.WithMetrics(mcp.NewMetrics(logger.Underlying())),
		mcp.WithTracerProvider(tel.TracerProvider()),
	)

	logger.Info(ctx, "starting coolify-mcp",
		zap.String("version", version),
		zap.String("transport", opts.transport),
		zap.Bool("production", cfg.IsProduction()),
		zap.Bool("scrub", cfg.Scrub.Enabled),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	switch opts.transport {
	case transportSDK:
		err = mcp.NewSDKServer(dispatcher, "coolify-mcp", version).Run(ctx)
	default:
		err = mcp.NewSession(dispatcher, stdin, stdout, stderr,
			mcp.WithSessionLogger(logger.Named("session")),
		).Run(ctx)
	}
	if errors.Is(err, context.Canceled) {
		logger.Info(ctx, "shutdown requested")
		return nil
	}
	return err
}

// newService loads the credential and builds the operations layer.
func newService(cfg *config.Config, logger *logging.Logger) (*coolify.Service, error) {
	token, err := config.LoadCredential(cfg.Coolify.TokenPath, config.DefaultTokenDirs())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCredential, err)
	}

	base, err := cfg.BaseURL()
	if err != nil {
		return nil, err
	}

	client, err := coolify.NewClient(base, token, cfg.Coolify.Timeout.Duration(),
		coolify.WithLogger(logger.Named("client")),
		coolify.WithUserAgent("coolify-mcp/"+version),
		coolify.WithRateLimit(cfg.Coolify.RateLimit, cfg.Coolify.RateBurst),
	)
	if err != nil {
		return nil, err
	}

	scrubber, err := secrets.New(secrets.FromSettings(cfg.Scrub))
	if err != nil {
		return nil, fmt.Errorf("%w: secret scrubber: %v", sanitize.ErrConfig, err)
	}

	return coolify.NewService(client, scrubber, logger.Named("coolify")), nil
}

// errCredential marks failures while loading the API token.
var errCredential = errors.New("loading credential")

// Startup failures. Messages name the failing area only.
var (
	errStartupCredential = errors.New("startup failed: invalid or unreadable API credential")
	errStartupConfig     = errors.New("startup failed: invalid configuration")
)

func startupError(err error) error {
	if errors.Is(err, errCredential) || errors.Is(err, sanitize.ErrAuthConfig) {
		return errStartupCredential
	}
	return errStartupConfig
}
