package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/twhy/react-component-tagger/pkg/mcp"
	"github.com/twhy/react-component-tagger/pkg/observability"
	"github.com/twhy/react-component-tagger/pkg/plugin"
)

func mcpCmd(a *app) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - annotate_jsx: rewrite JSX with data-component-* markers and return a source map
  - inspect_jsx:  list the annotation records for each JSX tag`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMCP(cmd.Context(), debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

func (a *app) runMCP(ctx context.Context, debug bool) error {
	cfg := a.observabilityConfig(observability.ModeMCP)
	cfg.LogJSON = true

	if debug {
		cfg.LogLevel = slog.LevelDebug
		cfg.DebugTrace = true
	}

	if headers := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); headers != "" {
		cfg.OTLPHeaders = observability.ParseOTLPHeaders(headers)
	}

	// stdout carries the protocol, so logs go to stderr.
	providers, err := observability.InitWithWriter(cfg, os.Stderr)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	p, err := a.plugin(func(o *plugin.Options) {
		o.Logger = providers.Logger
		o.Tracer = providers.Tracer
	})
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(mcp.ServerDeps{
		Plugin:  p,
		Logger:  providers.Logger,
		Metrics: red,
		Tracer:  providers.Tracer,
	})
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
