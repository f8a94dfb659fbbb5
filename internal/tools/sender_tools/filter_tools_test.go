package sender_tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/senderwatch/internal/mailbox/mailboxtest"
	"github.com/teemow/senderwatch/internal/refresh"
	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/stats"
)

func TestHandleAutoArchive(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res, err := handleAutoArchive(ctx, newRequest(map[string]interface{}{
		"sender":  "News@Example.com",
		"labelId": "Label_1",
	}), h.sc)
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	out := decode(t, res)
	assert.Equal(t, "news@example.com", out["sender"])
	assert.Equal(t, "filter-1", out["filterId"])
	assert.Equal(t, "Label_1", out["labelId"])
	assert.Equal(t, "Auto archive enabled!", out["message"])

	res, err = handleFilterSettingsLink(ctx, newRequest(map[string]interface{}{"sender": "news@example.com"}), h.sc)
	require.NoError(t, err)
	assert.Equal(t, "https://mail.google.com/mail/u/me@example.com/#settings/filters", resultText(t, res))

	res, err = handleDisableAutoArchive(ctx, newRequest(map[string]interface{}{"sender": "news@example.com"}), h.sc)
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, "Auto archive disabled!", decode(t, res)["message"])
	assert.Empty(t, h.fake.Filters())
}

func TestHandleAutoArchive_MissingSender(t *testing.T) {
	h := newHarness(t, nil)

	res, err := handleAutoArchive(context.Background(), newRequest(map[string]interface{}{}), h.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "sender is required", resultText(t, res))
	assert.Zero(t, h.fake.Calls(mailboxtest.OpCreateFilter))
}

func TestHandleAutoArchive_ProviderError(t *testing.T) {
	h := newHarness(t, nil)
	h.fake.FailNext(mailboxtest.OpCreateFilter, assert.AnError)

	res, err := handleAutoArchive(context.Background(), newRequest(map[string]interface{}{"sender": "news@example.com"}), h.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), assert.AnError.Error())
}

func TestHandleFilterSettingsLink_NoFilter(t *testing.T) {
	h := newHarness(t, nil)

	res, err := handleFilterSettingsLink(context.Background(), newRequest(map[string]interface{}{"sender": "news@example.com"}), h.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleVerifyAutoArchive(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := handleAutoArchive(ctx, newRequest(map[string]interface{}{"sender": "news@example.com"}), h.sc)
	require.NoError(t, err)

	res, err := handleVerifyAutoArchive(ctx, newRequest(map[string]interface{}{"sender": "news@example.com"}), h.sc)
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	out := decode(t, res)
	assert.Equal(t, true, out["autoArchived"])
	assert.Equal(t, "filter-1", out["activeFilterId"])
}

func TestHandleSenderInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown sender", func(t *testing.T) {
		h := newHarness(t, nil)
		res, err := handleSenderInfo(ctx, newRequest(map[string]interface{}{"sender": "news@example.com"}), h.sc)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "sender_list_threads")
	})

	t.Run("with refreshed stats", func(t *testing.T) {
		h := newHarness(t, nil)
		scheduler, err := refresh.NewScheduler(h.sc.Orchestrator(), refresh.Config{
			Interval: refresh.DefaultInterval,
			Senders:  []string{"news@example.com"},
			Period:   stats.PeriodWeek,
		}, nil)
		require.NoError(t, err)
		require.NoError(t, scheduler.RunOnce(ctx))

		o := h.sc.Orchestrator()
		sc, err := server.NewServerContext(ctx, o, server.WithScheduler(scheduler))
		require.NoError(t, err)
		t.Cleanup(func() { _ = sc.Shutdown(context.Background()) })

		res, err := handleSenderInfo(ctx, newRequest(map[string]interface{}{"sender": "news@example.com"}), sc)
		require.NoError(t, err)
		require.False(t, res.IsError, resultText(t, res))

		out := decode(t, res)
		sender, ok := out["sender"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "news@example.com", sender["address"])
		assert.Equal(t, "https://example.com/u", sender["lastUnsubscribeLink"])

		snapshot, ok := out["stats"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "week", snapshot["period"])
		assert.EqualValues(t, 2, snapshot["threads"])
	})
}
