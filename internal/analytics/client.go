package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/retry"
)

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy sets the retry policy. The default retries once after retry.DefaultBackoff.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client issues typed bucketed count queries with tracing, metrics and retry.
type Client struct {
	api     API
	backend string
	policy  retry.Policy
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewClient creates a Client for api.
func NewClient(api API, opts ...Option) *Client {
	c := &Client{
		api:     api,
		backend: instrumentation.StatusUnknown,
		policy:  retry.New(retry.DefaultBackoff),
	}
	if n, ok := api.(Named); ok {
		c.backend = n.Backend()
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "analytics")

	onRetry := c.policy.OnRetry
	c.policy.OnRetry = func(err error) {
		c.metrics.RecordRetry(context.Background(), instrumentation.APIAnalytics)
		if onRetry != nil {
			onRetry(err)
		}
	}
	return c
}

// Backend returns the name of the underlying backend.
func (c *Client) Backend() string {
	return c.backend
}

// QueryCounts returns the per-bucket counts for q. The sender is normalized
// before it reaches the backend.
func (c *Client) QueryCounts(ctx context.Context, q CountQuery) ([]BucketCount, error) {
	q.Sender = mailbox.NormalizeAddress(q.Sender)
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid count query: %w", err)
	}

	ctx, span := instrumentation.StartAnalyticsSpan(ctx, c.backend, len(q.Starts),
		attribute.String(instrumentation.SpanAttrSender, logging.AnonymizeSender(q.Sender)))
	defer span.End()

	start := time.Now()
	counts, err := retry.Value(ctx, c.policy, func(ctx context.Context) ([]BucketCount, error) {
		return c.api.QueryCounts(ctx, q)
	})
	c.metrics.RecordAnalyticsQuery(ctx, c.backend, instrumentation.StatusFromError(err), time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("analytics query failed", logging.Sender(q.Sender), logging.Err(err))
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	return counts, nil
}
