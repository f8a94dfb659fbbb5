package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/senderwatch/internal/analytics"
	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/filters"
	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/notify"
	"github.com/teemow/senderwatch/internal/retry"
	"github.com/teemow/senderwatch/internal/stats"
	"github.com/teemow/senderwatch/internal/threads"
)

// Config holds the collaborators an Orchestrator is built from.
type Config struct {
	Mailbox   mailbox.API
	Analytics analytics.API
	Sink      notify.Sink

	// Retry is the policy for mailbox and analytics calls. The zero value
	// retries once after retry.DefaultBackoff.
	Retry   retry.Policy
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Orchestrator coordinates sender filters, sender stats and thread state.
type Orchestrator struct {
	filters *filters.Manager
	stats   *stats.Aggregator
	threads *threads.Coordinator
	labels  *mailbox.FilterClient
	backend string
	sink    notify.Sink
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	nowFn   func() time.Time
}

// New wires the clients, managers and the aggregator for cfg.
func New(cfg Config) *Orchestrator {
	policy := cfg.Retry
	if policy.Backoff <= 0 {
		policy.Backoff = retry.DefaultBackoff
	}

	mailboxOpts := []mailbox.Option{
		mailbox.WithRetryPolicy(policy),
		mailbox.WithMetrics(cfg.Metrics),
		mailbox.WithLogger(cfg.Logger),
	}
	filterClient := mailbox.NewFilterClient(cfg.Mailbox, mailboxOpts...)
	threadClient := mailbox.NewThreadClient(cfg.Mailbox, mailboxOpts...)
	countClient := analytics.NewClient(cfg.Analytics,
		analytics.WithRetryPolicy(policy),
		analytics.WithMetrics(cfg.Metrics),
		analytics.WithLogger(cfg.Logger),
	)

	sink := cfg.Sink
	if sink == nil {
		sink = notify.NewLogSink(cfg.Logger)
	}

	return &Orchestrator{
		filters: filters.NewManager(filterClient,
			filters.WithMetrics(cfg.Metrics), filters.WithLogger(cfg.Logger)),
		stats: stats.NewAggregator(countClient, cfg.Logger),
		threads: threads.NewCoordinator(threadClient,
			threads.WithMetrics(cfg.Metrics), threads.WithLogger(cfg.Logger)),
		labels:  filterClient,
		backend: countClient.Backend(),
		sink:    sink,
		metrics: cfg.Metrics,
		logger:  logging.WithComponent(cfg.Logger, "orchestrator"),
		nowFn:   time.Now,
	}
}

// Account returns the mailbox identity.
func (o *Orchestrator) Account() string {
	return o.labels.Account()
}

// AnalyticsBackend returns the name of the analytics backend.
func (o *Orchestrator) AnalyticsBackend() string {
	return o.backend
}

// CreateAutoArchiveFilter enables auto archive for a sender.
func (o *Orchestrator) CreateAutoArchiveFilter(ctx context.Context, address, labelID string) (mailbox.Filter, error) {
	f, err := o.filters.CreateAutoArchiveFilter(ctx, address, labelID)
	o.emit(ctx, OpCreateFilter, address, err, msgAutoArchiveEnabled, msgCreateFilterFailed)
	return f, err
}

// DeleteAutoArchiveFilter disables auto archive for a sender.
func (o *Orchestrator) DeleteAutoArchiveFilter(ctx context.Context, address string) error {
	err := o.filters.DeleteAutoArchiveFilter(ctx, address)
	o.emit(ctx, OpDeleteFilter, address, err, msgAutoArchiveDisabled, msgDeleteFilterFailed)
	return err
}

// VerifyAutoArchiveFilter reconciles the cached auto archive flag with the mailbox.
func (o *Orchestrator) VerifyAutoArchiveFilter(ctx context.Context, address string) (filters.Sender, error) {
	return o.filters.VerifyAutoArchiveFilter(ctx, address)
}

// FilterSettingsLink returns where the active filter of a sender can be edited.
func (o *Orchestrator) FilterSettingsLink(address string) (string, error) {
	return o.filters.FilterSettingsLink(address)
}

// Sender returns the cached state of a sender.
func (o *Orchestrator) Sender(address string) (filters.Sender, bool) {
	return o.filters.Sender(address)
}

// Senders returns the cached state of all known senders.
func (o *Orchestrator) Senders() []filters.Sender {
	return o.filters.Senders()
}

// SenderStats returns the bucketed message counts of a sender.
func (o *Orchestrator) SenderStats(ctx context.Context, q stats.Query) ([]stats.Bucket, error) {
	return o.stats.SenderStats(ctx, q)
}

// ListThreads lists threads and records the sender's newest unsubscribe link.
func (o *Orchestrator) ListThreads(ctx context.Context, q mailbox.ThreadQuery) ([]mailbox.Thread, error) {
	list, err := o.threads.ListThreads(ctx, q)
	if err != nil {
		return nil, err
	}

	if q.Sender != "" {
		o.filters.Discover(q.Sender, newestUnsubscribeLink(list))
	}
	return list, nil
}

// SetRead marks a thread read or unread.
func (o *Orchestrator) SetRead(ctx context.Context, threadID string, read bool) error {
	err := o.threads.SetRead(ctx, threadID, read)
	if read {
		o.emit(ctx, OpMarkRead, threadID, err, msgMarkedRead, msgMarkFailed)
	} else {
		o.emit(ctx, OpMarkUnread, threadID, err, msgMarkedUnread, msgMarkFailed)
	}
	return err
}

// Trash moves a thread to the trash.
func (o *Orchestrator) Trash(ctx context.Context, threadID string) error {
	err := o.threads.Trash(ctx, threadID)
	o.emit(ctx, OpTrash, threadID, err, msgThreadDeleted, msgTrashFailed)
	return err
}

// Thread returns the cached state of a thread.
func (o *Orchestrator) Thread(threadID string) (mailbox.Thread, bool) {
	return o.threads.Thread(threadID)
}

// Pending returns the pending mutation of a thread.
func (o *Orchestrator) Pending(threadID string) (threads.PendingMutation, bool) {
	return o.threads.Pending(threadID)
}

// Labels lists the mailbox labels a filter can apply.
func (o *Orchestrator) Labels(ctx context.Context) ([]mailbox.Label, error) {
	return o.labels.Labels(ctx)
}

// emit sends the notification for a terminal outcome. Conflicts are
// rejected before anything happened and are not notified.
func (o *Orchestrator) emit(ctx context.Context, operation, subject string, err error, success, failurePrefix string) {
	if apperrors.IsConflict(err) {
		return
	}

	e := notify.NewEvent(operation, notify.OutcomeSuccess, success, subject)
	if err != nil {
		e.Outcome = notify.OutcomeFailure
		e.Message = failurePrefix + apperrors.ProviderMessage(err)
	}
	e.At = o.nowFn().UTC()

	o.sink.Notify(e)
	o.metrics.RecordNotification(ctx, operation, e.Outcome)
}

// newestUnsubscribeLink returns the unsubscribe link of the most recent thread that has one.
func newestUnsubscribeLink(list []mailbox.Thread) string {
	var (
		link   string
		newest time.Time
	)
	for _, t := range list {
		if t.UnsubscribeLink == "" {
			continue
		}
		if link == "" || t.LastMessageAt.After(newest) {
			link = t.UnsubscribeLink
			newest = t.LastMessageAt
		}
	}
	return link
}
