package threads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/mailbox"
)

// Kind is the kind of a thread mutation.
type Kind string

const (
	KindMarkRead   Kind = "mark_read"
	KindMarkUnread Kind = "mark_unread"
	KindTrash      Kind = "trash"
)

// PendingMutation is a mutation whose remote call has not resolved yet.
type PendingMutation struct {
	ThreadID  string         `json:"threadId"`
	Previous  mailbox.Thread `json:"previous"`
	Kind      Kind           `json:"kind"`
	StartedAt time.Time      `json:"startedAt"`
}

// Remote is the subset of mailbox.ThreadClient the coordinator needs.
type Remote interface {
	List(ctx context.Context, q mailbox.ThreadQuery) ([]mailbox.Thread, error)
	SetRead(ctx context.Context, threadID string, read bool) error
	Trash(ctx context.Context, threadID string) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// Coordinator is the thread state coordinator. It is safe for concurrent use.
type Coordinator struct {
	remote  Remote
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	threads map[string]mailbox.Thread
	pending map[string]PendingMutation
}

// NewCoordinator creates a Coordinator issuing remote calls through remote.
func NewCoordinator(remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote:  remote,
		now:     time.Now,
		threads: make(map[string]mailbox.Thread),
		pending: make(map[string]PendingMutation),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "threads")
	return c
}

// ListThreads fetches threads from the mailbox and refreshes the cache.
// Threads with a pending mutation keep their optimistic state, both in the
// cache and in the returned slice.
func (c *Coordinator) ListThreads(ctx context.Context, q mailbox.ThreadQuery) ([]mailbox.Thread, error) {
	threads, err := c.remote.List(ctx, q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]mailbox.Thread, len(threads))
	for i, t := range threads {
		if _, busy := c.pending[t.ID]; busy {
			out[i] = c.threads[t.ID]
			continue
		}
		c.threads[t.ID] = t
		out[i] = t
	}
	return out, nil
}

// SetRead marks a cached thread read or unread.
func (c *Coordinator) SetRead(ctx context.Context, threadID string, read bool) error {
	kind := KindMarkUnread
	if read {
		kind = KindMarkRead
	}
	return c.mutate(ctx, threadID, kind,
		func(t *mailbox.Thread) { t.IsRead = read },
		func(ctx context.Context) error { return c.remote.SetRead(ctx, threadID, read) },
	)
}

// Trash moves a cached thread to the trash.
func (c *Coordinator) Trash(ctx context.Context, threadID string) error {
	return c.mutate(ctx, threadID, KindTrash,
		func(t *mailbox.Thread) { t.IsTrashed = true },
		func(ctx context.Context) error { return c.remote.Trash(ctx, threadID) },
	)
}

// Thread returns the cached state of a thread.
func (c *Coordinator) Thread(threadID string) (mailbox.Thread, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.threads[threadID]
	return t, ok
}

// Pending returns the pending mutation of a thread, if any.
func (c *Coordinator) Pending(threadID string) (PendingMutation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[threadID]
	return p, ok
}

// mutate runs one optimistic mutation. The remote call runs on a context
// detached from caller cancellation so that commit or revert always happens.
func (c *Coordinator) mutate(ctx context.Context, threadID string, kind Kind, apply func(*mailbox.Thread), call func(context.Context) error) error {
	if err := c.begin(ctx, threadID, kind, apply); err != nil {
		return err
	}

	err := call(context.WithoutCancel(ctx))
	if err != nil {
		c.revert(ctx, threadID)
		c.logger.Warn("thread mutation rolled back", logging.Thread(threadID), logging.Kind(string(kind)), logging.Err(err))
		return &apperrors.RemoteMutationError{Kind: string(kind), ThreadID: threadID, Err: err}
	}

	c.commit(threadID)
	return nil
}

// begin snapshots the thread into a PendingMutation and applies the optimistic change.
func (c *Coordinator) begin(ctx context.Context, threadID string, kind Kind, apply func(*mailbox.Thread)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, busy := c.pending[threadID]; busy {
		c.metrics.RecordConflict(ctx, instrumentation.EntityThread)
		return apperrors.NewConflictError(instrumentation.EntityThread, threadID, string(p.Kind))
	}

	t, ok := c.threads[threadID]
	if !ok {
		return apperrors.NewNotConfiguredError(instrumentation.EntityThread, threadID, "thread has not been loaded")
	}

	c.pending[threadID] = PendingMutation{
		ThreadID:  threadID,
		Previous:  t,
		Kind:      kind,
		StartedAt: c.now(),
	}
	apply(&t)
	c.threads[threadID] = t
	return nil
}

func (c *Coordinator) commit(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, threadID)
}

// revert restores the snapshot taken by begin.
func (c *Coordinator) revert(ctx context.Context, threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[threadID]
	if !ok {
		return
	}
	c.threads[threadID] = p.Previous
	delete(c.pending, threadID)
	c.metrics.RecordRollback(ctx, string(p.Kind))
}
