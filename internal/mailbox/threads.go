package mailbox

import (
	"context"
	"fmt"

	"github.com/teemow/senderwatch/internal/instrumentation"
)

// ThreadClient issues typed thread list and mutation calls against the mailbox.
type ThreadClient struct {
	caller
}

// NewThreadClient creates a ThreadClient for api.
func NewThreadClient(api API, opts ...Option) *ThreadClient {
	return &ThreadClient{caller: newCaller(api, "mailbox.threads", opts...)}
}

// List returns the threads matching q.
func (c *ThreadClient) List(ctx context.Context, q ThreadQuery) ([]Thread, error) {
	q.Sender = NormalizeAddress(q.Sender)

	var threads []Thread
	err := c.do(ctx, instrumentation.OperationListThreads, func(ctx context.Context) error {
		var err error
		threads, err = c.api.ListThreads(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// SetRead marks all messages of a thread read or unread.
func (c *ThreadClient) SetRead(ctx context.Context, threadID string, read bool) error {
	err := c.do(ctx, instrumentation.OperationSetRead, func(ctx context.Context) error {
		return c.api.SetRead(ctx, threadID, read)
	})
	if err != nil {
		return fmt.Errorf("failed to update read state of thread %s: %w", threadID, err)
	}
	return nil
}

// Trash moves a thread to the trash.
func (c *ThreadClient) Trash(ctx context.Context, threadID string) error {
	err := c.do(ctx, instrumentation.OperationTrash, func(ctx context.Context) error {
		return c.api.Trash(ctx, threadID)
	})
	if err != nil {
		return fmt.Errorf("failed to trash thread %s: %w", threadID, err)
	}
	return nil
}
