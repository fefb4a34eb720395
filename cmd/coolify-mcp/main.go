// Package main implements coolify-mcp, an MCP stdio adapter for the Coolify API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "coolify-mcp: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Protocol traffic uses stdin and stdout;
// everything else goes to stderr.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	serve := newServeCmd(stdin, stdout, stderr)

	root := &cobra.Command{
		Use:   "coolify-mcp",
		Short: "MCP stdio adapter for the Coolify API",
		Long: `coolify-mcp exposes Coolify application lifecycle operations as MCP tools.

It reads one request per line on stdin and writes one response per line on
stdout. Running it without a subcommand is the same as "coolify-mcp serve".

Environment:
  COOLIFY_URL          Coolify base URL (else http://$PLATFORM_IP:8000)
  PLATFORM_IP          Coolify host used when COOLIFY_URL is unset
  COOLIFY_TOKEN_PATH   API token file (default ~/.config/coolify-mcp/token)
  COOLIFY_RATE_LIMIT   upstream requests per second, 0 disables (default 5)
  NODE_ENV             "production" requires an https base URL
  LOG_LEVEL            trace, debug, info, warn or error
  LOG_FORMAT           json or console
  SCRUB_ENABLED        redact secrets from tool output (default true)
  TELEMETRY_ENABLED    export traces and metrics over OTLP (default false)
  TELEMETRY_ENDPOINT   OTLP collector address (default localhost:4317)
  TELEMETRY_PROTOCOL   grpc or http/protobuf`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(serve)
	root.AddCommand(newToolsCmd(stdout))
	root.AddCommand(newVersionCmd(stdout))
	return root
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "coolify-mcp by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
