package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teemow/senderwatch/internal/analytics"
	"github.com/teemow/senderwatch/internal/config"
	"github.com/teemow/senderwatch/internal/gmail"
	"github.com/teemow/senderwatch/internal/google"
	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/notify"
	"github.com/teemow/senderwatch/internal/orchestrator"
	"github.com/teemow/senderwatch/internal/refresh"
	"github.com/teemow/senderwatch/internal/retry"
	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/stats"
)

// namedCloser releases a resource opened while wiring the application.
type namedCloser struct {
	name  string
	close server.Closer
}

// app holds the wired application and the resources it has to release.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator

	// recorder is set when the analytics backend is fed by the refresher.
	recorder refresh.Recorder
	closers  []namedCloser
}

// newApp connects the mailbox, the analytics backend and the notification sink.
// On error every resource opened so far is closed.
func newApp(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logging.WithComponent(logger, "app")}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	mb, err := newMailbox(ctx, cfg, a.logger)
	if err != nil {
		return nil, err
	}

	counts, err := a.openAnalytics(ctx)
	if err != nil {
		return nil, err
	}

	sink, err := a.openSink()
	if err != nil {
		return nil, err
	}

	a.orchestrator = orchestrator.New(orchestrator.Config{
		Mailbox:   mb,
		Analytics: counts,
		Sink:      sink,
		Retry:     retry.New(cfg.Retry.Backoff),
		Metrics:   metrics,
		Logger:    logger,
	})

	a.logger.Info("application wired",
		logging.Account(a.orchestrator.Account()),
		slog.String("analytics_backend", a.orchestrator.AnalyticsBackend()),
		slog.String("notify_sink", cfg.Notify.Sink))
	return a, nil
}

func newMailbox(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mailbox.API, error) {
	if err := google.MigrateDefaultToken(); err != nil {
		logger.Warn("failed to migrate legacy token", logging.Err(err))
	}
	if !google.HasTokenForAccount(cfg.Account) {
		return nil, errors.New(google.GetAuthenticationErrorMessage(cfg.Account))
	}

	client, err := gmail.NewClientForAccount(ctx, cfg.Account, cfg.Credentials())
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client for account %s: %w", cfg.Account, err)
	}
	return client, nil
}

func (a *app) openAnalytics(ctx context.Context) (analytics.API, error) {
	switch a.cfg.Analytics.Backend {
	case config.BackendMongo:
		m := a.cfg.Analytics.Mongo
		store, err := analytics.NewMongoStore(ctx, m.URI, m.Database, m.Collection)
		if err != nil {
			return nil, err
		}
		a.addCloser("mongo", store.Close)
		return store, nil

	case config.BackendSQLite:
		path := a.cfg.Analytics.SQLite.Path
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		store, err := analytics.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		a.addCloser("sqlite", func(context.Context) error { return store.Close() })
		a.recorder = store
		return store, nil

	default:
		return nil, fmt.Errorf("unknown analytics backend %q", a.cfg.Analytics.Backend)
	}
}

func (a *app) openSink() (notify.Sink, error) {
	logSink := notify.NewLogSink(a.logger)

	switch a.cfg.Notify.Sink {
	case config.SinkLog:
		return logSink, nil

	case config.SinkAMQP:
		publisher, err := notify.NewAMQPPublisher(a.cfg.Notify.AMQP.URL, a.cfg.Notify.AMQP.Exchange, a.logger)
		if err != nil {
			return nil, err
		}
		a.addCloser("amqp publisher", func(context.Context) error { return publisher.Close() })

		// Closed first, so queued events are published before the connection goes away.
		async := notify.NewAsyncSink(publisher, a.cfg.Notify.Buffer, a.logger)
		a.addCloser("notification queue", async.Close)

		return notify.Fanout{logSink, async}, nil

	default:
		return nil, fmt.Errorf("unknown notification sink %q", a.cfg.Notify.Sink)
	}
}

func (a *app) addCloser(name string, c server.Closer) {
	a.closers = append(a.closers, namedCloser{name: name, close: c})
}

// newScheduler creates the refresh scheduler, or returns nil when refreshing is disabled.
func (a *app) newScheduler(extraSenders []string) (*refresh.Scheduler, error) {
	if a.cfg.Refresh.Interval <= 0 {
		return nil, nil
	}
	senders := append(append([]string{}, a.cfg.Refresh.Senders...), extraSenders...)
	if len(senders) == 0 {
		a.logger.Warn("refresh interval set but no senders to watch, refreshing disabled")
		return nil, nil
	}

	s, err := refresh.NewScheduler(a.orchestrator, refresh.Config{
		Interval: a.cfg.Refresh.Interval,
		Senders:  senders,
		Period:   stats.Period(a.cfg.Refresh.Period),
		Recorder: a.recorder,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh scheduler: %w", err)
	}
	return s, nil
}

// contextOptions hands the opened resources to the server context, which
// closes them on shutdown. The app must not be closed afterwards.
func (a *app) contextOptions() []server.ContextOption {
	opts := make([]server.ContextOption, 0, len(a.closers))
	for _, c := range a.closers {
		opts = append(opts, server.WithCloser(c.name, c.close))
	}
	a.closers = nil
	return opts
}

// Close releases the opened resources in reverse order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
