package threads

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/mailbox/mailboxtest"
	"github.com/teemow/senderwatch/internal/retry"
)

var t1 = mailbox.Thread{
	ID:            "t1",
	SenderAddress: "news@example.com",
	Subject:       "Weekly digest",
	LastMessageAt: time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC),
}

func newTestCoordinator(t *testing.T, threads ...mailbox.Thread) (*Coordinator, *mailboxtest.Fake) {
	t.Helper()
	fake := mailboxtest.New()
	for _, th := range threads {
		fake.AddThread(th)
	}
	client := mailbox.NewThreadClient(fake, mailbox.WithRetryPolicy(retry.New(time.Millisecond)))
	c := NewCoordinator(client)

	_, err := c.ListThreads(context.Background(), mailbox.ThreadQuery{Sender: "news@example.com", IncludeTrashed: true})
	require.NoError(t, err)
	return c, fake
}

func forbidden() error {
	return &googleapi.Error{Code: http.StatusForbidden, Message: "Insufficient Permission"}
}

func TestCoordinator_TrashRollback(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)
	fake.FailNext(mailboxtest.OpTrash, forbidden())

	err := c.Trash(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, apperrors.IsRemoteMutation(err))
	assert.Contains(t, err.Error(), "Insufficient Permission")

	got, ok := c.Thread("t1")
	require.True(t, ok)
	assert.False(t, got.IsTrashed)
	assert.Equal(t, t1, got)

	_, pending := c.Pending("t1")
	assert.False(t, pending)
}

func TestCoordinator_RollbackAfterRetry(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)
	fake.FailNext(mailboxtest.OpSetRead,
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		&googleapi.Error{Code: http.StatusServiceUnavailable},
	)

	err := c.SetRead(context.Background(), "t1", true)
	assert.True(t, apperrors.IsRemoteMutation(err))
	assert.Equal(t, 2, fake.Calls(mailboxtest.OpSetRead))

	got, _ := c.Thread("t1")
	assert.Equal(t, t1, got)
}

func TestCoordinator_SetRead(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)

	require.NoError(t, c.SetRead(context.Background(), "t1", true))
	got, _ := c.Thread("t1")
	assert.True(t, got.IsRead)
	assert.False(t, got.IsTrashed)

	remote, _ := fake.RemoteThread("t1")
	assert.True(t, remote.IsRead)

	require.NoError(t, c.SetRead(context.Background(), "t1", false))
	got, _ = c.Thread("t1")
	assert.False(t, got.IsRead)
}

func TestCoordinator_OptimisticStateWhilePending(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)
	entered, release := fake.Block(mailboxtest.OpTrash)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Trash(context.Background(), "t1") }()
	<-entered

	got, _ := c.Thread("t1")
	assert.True(t, got.IsTrashed)

	p, ok := c.Pending("t1")
	require.True(t, ok)
	assert.Equal(t, KindTrash, p.Kind)
	assert.Equal(t, t1, p.Previous)

	release()
	require.NoError(t, <-errCh)
	_, ok = c.Pending("t1")
	assert.False(t, ok)
}

func TestCoordinator_ConflictDoesNotAlterState(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)
	entered, release := fake.Block(mailboxtest.OpSetRead)

	errCh := make(chan error, 1)
	go func() { errCh <- c.SetRead(context.Background(), "t1", true) }()
	<-entered

	before, _ := c.Thread("t1")

	err := c.Trash(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, err.Error(), "mark_read")

	err = c.SetRead(context.Background(), "t1", false)
	assert.True(t, apperrors.IsConflict(err))

	after, _ := c.Thread("t1")
	assert.Equal(t, before, after)
	assert.Equal(t, 0, fake.Calls(mailboxtest.OpTrash))

	release()
	require.NoError(t, <-errCh)
}

func TestCoordinator_DifferentThreadsRunConcurrently(t *testing.T) {
	t2 := t1
	t2.ID = "t2"
	c, fake := newTestCoordinator(t, t1, t2)
	entered, release := fake.Block(mailboxtest.OpTrash)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"t1", "t2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = c.Trash(context.Background(), id)
		}(i, id)
	}
	<-entered
	<-entered
	release()
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 2, fake.Calls(mailboxtest.OpTrash))
}

func TestCoordinator_CallerCancellationDoesNotAbortMutation(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)
	entered, release := fake.Block(mailboxtest.OpTrash)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Trash(ctx, "t1") }()
	<-entered

	cancel()
	release()
	require.NoError(t, <-errCh)

	got, _ := c.Thread("t1")
	assert.True(t, got.IsTrashed)
	remote, _ := fake.RemoteThread("t1")
	assert.True(t, remote.IsTrashed)
}

func TestCoordinator_UnknownThread(t *testing.T) {
	c, fake := newTestCoordinator(t)

	err := c.Trash(context.Background(), "missing")
	assert.True(t, apperrors.IsNotConfigured(err))
	assert.Equal(t, 0, fake.Calls(mailboxtest.OpTrash))
}

func TestCoordinator_ListThreadsKeepsPendingState(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)
	entered, release := fake.Block(mailboxtest.OpSetRead)

	errCh := make(chan error, 1)
	go func() { errCh <- c.SetRead(context.Background(), "t1", true) }()
	<-entered

	threads, err := c.ListThreads(context.Background(), mailbox.ThreadQuery{Sender: "news@example.com"})
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.True(t, threads[0].IsRead, "optimistic value wins while the mutation is pending")

	release()
	require.NoError(t, <-errCh)
}

func TestCoordinator_ListThreadsRefreshesCache(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)

	updated := t1
	updated.IsRead = true
	updated.Snippet = "new"
	fake.AddThread(updated)

	_, err := c.ListThreads(context.Background(), mailbox.ThreadQuery{Sender: "news@example.com"})
	require.NoError(t, err)

	got, _ := c.Thread("t1")
	assert.Equal(t, updated, got)
}

func TestCoordinator_ListThreadsFailure(t *testing.T) {
	c, fake := newTestCoordinator(t, t1)
	fake.FailNext(mailboxtest.OpListThreads, forbidden())

	_, err := c.ListThreads(context.Background(), mailbox.ThreadQuery{Sender: "news@example.com"})
	require.Error(t, err)

	got, ok := c.Thread("t1")
	require.True(t, ok)
	assert.Equal(t, t1, got)
}
