package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/resources"
	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/tools/sender_tools"
)

// Supported transports.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// serveOptions are the flags of the serve command.
type serveOptions struct {
	transport        string
	httpAddr         string
	yolo             bool
	disableStreaming bool
	watch            string
	metrics          MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide sender management
tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, with /healthz and /readyz

Safety Mode:
  By default, the server operates in read-only mode, providing only safe operations.
  Use --yolo to enable write operations (filters, marking and trashing threads).

Refreshing:
  When refresh.interval is set in the configuration, the watched senders
  (refresh.senders and --watch) are re-queried on that interval and the
  latest result is shown by sender_info.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (default: read-only mode)")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Answer streamable-http requests with plain JSON instead of SSE")
	cmd.Flags().StringVar(&opts.watch, "watch", "", "Comma-separated senders to refresh in addition to refresh.senders")
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", false, "Serve Prometheus metrics (env: METRICS_ENABLED)")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", ":9090", "Metrics server address (env: METRICS_ADDR)")

	return cmd
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.WithComponent(slog.Default(), "serve")

	switch opts.transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.transport, transportStdio, transportStreamableHTTP)
	}

	// Load metrics config from environment if not set via flags
	if !opts.metrics.Enabled && os.Getenv("METRICS_ENABLED") == "true" {
		opts.metrics.Enabled = true
	}
	if opts.metrics.Addr == "" || opts.metrics.Addr == ":9090" {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			opts.metrics.Addr = addr
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Account = cfg.Account
	instrConfig.AnalyticsBackend = cfg.Analytics.Backend

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	a, err := newApp(shutdownCtx, cfg, provider.Metrics(), slog.Default())
	if err != nil {
		return err
	}

	scheduler, err := a.newScheduler(parseCommaSeparatedList(opts.watch))
	if err != nil {
		_ = a.Close(context.Background())
		return err
	}

	contextOpts := append(a.contextOptions(),
		server.WithScheduler(scheduler),
		server.WithLogger(slog.Default()),
	)
	if provider.Enabled() {
		contextOpts = append(contextOpts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging)),
		)
	}
	serverContext, err := server.NewServerContext(shutdownCtx, a.orchestrator, contextOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	healthChecker := server.NewHealthChecker(serverContext)

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != transportStdio && opts.metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			HealthChecker:           healthChecker,
		})
		if err != nil {
			_ = serverContext.Shutdown(context.Background())
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Shutdown metrics server first
		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(ctx); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	if scheduler != nil {
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start refresh scheduler: %w", err)
		}
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("senderwatch", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	// readOnly is the inverse of yolo
	readOnly := !opts.yolo
	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with write operations enabled (--yolo flag is set)")
	}

	if err := sender_tools.RegisterSenderTools(mcpSrv, serverContext, readOnly); err != nil {
		return fmt.Errorf("failed to register sender tools: %w", err)
	}
	if err := resources.RegisterSenderResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register sender resources: %w", err)
	}

	switch opts.transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, healthChecker, provider.Metrics(), opts, logger)
	default:
		return runStdioServer(mcpSrv)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, health *server.HealthChecker, metrics *instrumentation.Metrics, opts serveOptions, logger *slog.Logger) error {
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(server.MCPEndpointPath),
		mcpserver.WithDisableStreaming(opts.disableStreaming),
	)

	httpServer := &http.Server{
		Addr:              opts.httpAddr,
		Handler:           server.NewHTTPHandler(streamable, health, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("streamable HTTP server starting",
		slog.String("addr", opts.httpAddr),
		slog.String("endpoint", server.MCPEndpointPath))
	if opts.metrics.Enabled {
		logger.Info("metrics endpoint enabled", slog.String("addr", opts.metrics.Addr+"/metrics"))
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		if err := streamable.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down MCP transport: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

