package mailbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/retry"
)

// Option configures a FilterClient or ThreadClient.
type Option func(*caller)

// WithRetryPolicy sets the retry policy. The default retries once after retry.DefaultBackoff.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *caller) { c.policy = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *caller) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *caller) { c.logger = l }
}

// caller runs a single mailbox operation with tracing, metrics and the retry policy.
type caller struct {
	api     API
	policy  retry.Policy
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

func newCaller(api API, component string, opts ...Option) caller {
	c := caller{
		api:    api,
		policy: retry.New(retry.DefaultBackoff),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = logging.WithComponent(c.logger, component)

	onRetry := c.policy.OnRetry
	c.policy.OnRetry = func(err error) {
		c.metrics.RecordRetry(context.Background(), instrumentation.APIMailbox)
		if onRetry != nil {
			onRetry(err)
		}
	}
	return c
}

func (c caller) do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartMailboxSpan(ctx, operation)
	defer span.End()

	start := time.Now()
	err := c.policy.Do(ctx, fn)
	c.metrics.RecordMailboxOperation(ctx, operation, instrumentation.StatusFromError(err), time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("mailbox call failed", logging.Operation(operation), logging.Err(err))
		return err
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}
