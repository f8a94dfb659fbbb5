package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/orchestrator"
	"github.com/teemow/senderwatch/internal/refresh"
)

// Closer releases a resource owned by the server, such as a database
// connection or a notification publisher.
type Closer func(ctx context.Context) error

// ContextOption configures a ServerContext.
type ContextOption func(*ServerContext)

// WithScheduler attaches the refresh scheduler, stopped on shutdown.
func WithScheduler(s *refresh.Scheduler) ContextOption {
	return func(sc *ServerContext) { sc.scheduler = s }
}

// WithCloser registers a resource to release on shutdown. Closers run in
// reverse registration order.
func WithCloser(name string, c Closer) ContextOption {
	return func(sc *ServerContext) {
		if c != nil {
			sc.closers = append(sc.closers, namedCloser{name: name, close: c})
		}
	}
}

// WithMetrics sets the metrics recorder used by instrumented tools.
func WithMetrics(m *instrumentation.Metrics) ContextOption {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the audit logger used by instrumented tools.
func WithAuditLogger(al *instrumentation.AuditLogger) ContextOption {
	return func(sc *ServerContext) { sc.auditLogger = al }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ContextOption {
	return func(sc *ServerContext) { sc.logger = l }
}

type namedCloser struct {
	name  string
	close Closer
}

// ServerContext holds what the MCP tools need: the orchestrator of the
// configured mailbox and the resources to release on shutdown.
type ServerContext struct {
	ctx          context.Context
	cancel       context.CancelFunc
	orchestrator *orchestrator.Orchestrator
	scheduler    *refresh.Scheduler
	closers      []namedCloser
	metrics      *instrumentation.Metrics
	auditLogger  *instrumentation.AuditLogger
	logger       *slog.Logger
	mu           sync.RWMutex
	shutdown     bool
}

// NewServerContext creates a server context around o.
func NewServerContext(ctx context.Context, o *orchestrator.Orchestrator, opts ...ContextOption) (*ServerContext, error) {
	if o == nil {
		return nil, errors.New("orchestrator is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		orchestrator: o,
	}
	for _, opt := range opts {
		opt(sc)
	}
	sc.logger = logging.WithComponent(sc.logger, "server")
	return sc, nil
}

// Context returns the server context. It is canceled on shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Orchestrator returns the orchestrator of the configured mailbox.
func (sc *ServerContext) Orchestrator() *orchestrator.Orchestrator {
	return sc.orchestrator
}

// Scheduler returns the refresh scheduler, or nil when refreshing is disabled.
func (sc *ServerContext) Scheduler() *refresh.Scheduler {
	return sc.scheduler
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Account returns the mailbox identity.
func (sc *ServerContext) Account() string {
	return sc.orchestrator.Account()
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops the scheduler and releases all registered resources.
// It is safe to call more than once.
func (sc *ServerContext) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.cancel()

	var errs []error
	if sc.scheduler != nil {
		if err := sc.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop refresh scheduler: %w", err))
		}
	}
	for i := len(sc.closers) - 1; i >= 0; i-- {
		c := sc.closers[i]
		if err := c.close(ctx); err != nil {
			sc.logger.Warn("failed to close resource", slog.String("resource", c.name), logging.Err(err))
			errs = append(errs, fmt.Errorf("failed to close %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}
