package mailbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/mailbox/mailboxtest"
	"github.com/teemow/senderwatch/internal/retry"
)

func fastRetry() mailbox.Option {
	return mailbox.WithRetryPolicy(retry.New(time.Millisecond))
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"news@example.com", "news@example.com"},
		{"  News@Example.COM ", "news@example.com"},
		{"Newsletter <News@Example.com>", "news@example.com"},
		{`"Shop, Inc" <deals@shop.com>`, "deals@shop.com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, mailbox.NormalizeAddress(tt.in))
		})
	}
}

func TestFilterClient_CreateAutoArchive(t *testing.T) {
	fake := mailboxtest.New()
	client := mailbox.NewFilterClient(fake, fastRetry())

	f, err := client.CreateAutoArchive(context.Background(), "News@Example.com", "Label_1")
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "news@example.com", f.SenderAddress)
	assert.Equal(t, "Label_1", f.LabelID)
	assert.True(t, f.Archive)
	assert.Equal(t, 1, fake.Calls(mailboxtest.OpCreateFilter))
	assert.Len(t, fake.Filters(), 1)
}

func TestFilterClient_CreateAutoArchive_RetryAdoptsStoredFilter(t *testing.T) {
	fake := mailboxtest.New()
	// The provider stored the filter but the response was lost.
	fake.AddFilter(mailbox.Filter{ID: "existing", SenderAddress: "news@example.com", Archive: true})
	fake.FailNext(mailboxtest.OpCreateFilter, &googleapi.Error{Code: 503})

	client := mailbox.NewFilterClient(fake, fastRetry())

	f, err := client.CreateAutoArchive(context.Background(), "news@example.com", "")
	require.NoError(t, err)

	assert.Equal(t, "existing", f.ID)
	assert.Equal(t, 1, fake.Calls(mailboxtest.OpCreateFilter))
	assert.Len(t, fake.Filters(), 1)
}

func TestFilterClient_CreateAutoArchive_RetryCreatesWhenNothingStored(t *testing.T) {
	fake := mailboxtest.New()
	fake.FailNext(mailboxtest.OpCreateFilter, &googleapi.Error{Code: 500})

	client := mailbox.NewFilterClient(fake, fastRetry())

	f, err := client.CreateAutoArchive(context.Background(), "news@example.com", "")
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, 2, fake.Calls(mailboxtest.OpCreateFilter))
	assert.Len(t, fake.Filters(), 1)
}

func TestFilterClient_CreateAutoArchive_AlreadyExists(t *testing.T) {
	fake := mailboxtest.New()
	fake.AddFilter(mailbox.Filter{ID: "dup", SenderAddress: "news@example.com", Archive: true})
	fake.FailNext(mailboxtest.OpCreateFilter, &googleapi.Error{Code: 400, Message: "Filter already exists"})

	client := mailbox.NewFilterClient(fake, fastRetry())

	f, err := client.CreateAutoArchive(context.Background(), "news@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "dup", f.ID)
}

func TestFilterClient_CreateAutoArchive_ClientError(t *testing.T) {
	fake := mailboxtest.New()
	fake.FailNext(mailboxtest.OpCreateFilter, &googleapi.Error{Code: 400, Message: "Invalid criteria"})

	client := mailbox.NewFilterClient(fake, fastRetry())

	_, err := client.CreateAutoArchive(context.Background(), "news@example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid criteria")
	assert.Equal(t, 1, fake.Calls(mailboxtest.OpCreateFilter))
	assert.Empty(t, fake.Filters())
}

func TestFilterClient_Delete(t *testing.T) {
	fake := mailboxtest.New()
	fake.AddFilter(mailbox.Filter{ID: "f1", SenderAddress: "a@b.c", Archive: true})
	client := mailbox.NewFilterClient(fake, fastRetry())

	require.NoError(t, client.Delete(context.Background(), "f1"))
	assert.Empty(t, fake.Filters())
}

func TestFilterClient_Delete_NotFoundIsSuccess(t *testing.T) {
	fake := mailboxtest.New()
	fake.FailNext(mailboxtest.OpDeleteFilter, &googleapi.Error{Code: 404})
	client := mailbox.NewFilterClient(fake, fastRetry())

	assert.NoError(t, client.Delete(context.Background(), "gone"))
	assert.Equal(t, 1, fake.Calls(mailboxtest.OpDeleteFilter))
}

func TestFilterClient_Delete_Failure(t *testing.T) {
	fake := mailboxtest.New()
	cause := &googleapi.Error{Code: 403, Message: "insufficient permissions"}
	fake.FailNext(mailboxtest.OpDeleteFilter, cause)
	client := mailbox.NewFilterClient(fake, fastRetry())

	err := client.Delete(context.Background(), "f1")
	require.Error(t, err)

	var apiErr *googleapi.Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.Code)
}

func TestFilterClient_FindAutoArchive(t *testing.T) {
	fake := mailboxtest.New()
	fake.AddFilter(mailbox.Filter{ID: "label-only", SenderAddress: "news@example.com", LabelID: "L"})
	fake.AddFilter(mailbox.Filter{ID: "archive", SenderAddress: "NEWS@example.com", Archive: true})
	client := mailbox.NewFilterClient(fake, fastRetry())

	f, ok, err := client.FindAutoArchive(context.Background(), "news@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "archive", f.ID)

	_, ok, err = client.FindAutoArchive(context.Background(), "other@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilterClient_Labels(t *testing.T) {
	fake := mailboxtest.New()
	fake.AddLabel(mailbox.Label{ID: "INBOX", Name: "INBOX", Type: "system"})
	fake.AddLabel(mailbox.Label{ID: "Label_1", Name: "Newsletters", Type: "user"})
	fake.FailNext(mailboxtest.OpListLabels, &googleapi.Error{Code: 429})
	client := mailbox.NewFilterClient(fake, fastRetry())

	labels, err := client.Labels(context.Background())
	require.NoError(t, err)
	assert.Len(t, labels, 2)
	assert.Equal(t, 2, fake.Calls(mailboxtest.OpListLabels))
}
