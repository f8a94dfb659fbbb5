package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"google 429", &googleapi.Error{Code: 429}, true},
		{"google 500", &googleapi.Error{Code: 500}, true},
		{"google 503 wrapped", fmt.Errorf("list: %w", &googleapi.Error{Code: 503}), true},
		{"google 400", &googleapi.Error{Code: 400}, false},
		{"google 404", &googleapi.Error{Code: 404}, false},
		{"status coder 502", statusErr(502), true},
		{"status coder 403", statusErr(403), false},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&googleapi.Error{Code: 404}))
	assert.True(t, IsNotFound(statusErr(404)))
	assert.False(t, IsNotFound(&googleapi.Error{Code: 500}))
	assert.False(t, IsNotFound(errors.New("not found")))
}

func TestPolicy_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		err := New(time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient failure retried once", func(t *testing.T) {
		calls := 0
		retried := 0
		p := New(time.Millisecond)
		p.OnRetry = func(error) { retried++ }

		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return &googleapi.Error{Code: 503}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, retried)
	})

	t.Run("never more than two attempts", func(t *testing.T) {
		calls := 0
		err := New(time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
			calls++
			return &googleapi.Error{Code: 500, Message: fmt.Sprintf("attempt %d", calls)}
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.Contains(t, err.Error(), "attempt 2")
	})

	t.Run("client error not retried", func(t *testing.T) {
		calls := 0
		err := New(time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
			calls++
			return &googleapi.Error{Code: 400}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context skips retry", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		first := &googleapi.Error{Code: 502}
		err := New(time.Hour).Do(ctx, func(ctx context.Context) error {
			calls++
			return first
		})
		assert.Equal(t, first, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("custom classifier", func(t *testing.T) {
		calls := 0
		p := New(time.Millisecond)
		p.IsTransient = func(error) bool { return true }
		_ = p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("anything")
		})
		assert.Equal(t, 2, calls)
	})
}

func TestValue(t *testing.T) {
	calls := 0
	got, err := Value(context.Background(), New(time.Millisecond), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", context.DeadlineExceeded
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestNew_DefaultBackoff(t *testing.T) {
	assert.Equal(t, DefaultBackoff, New(0).Backoff)
	assert.Equal(t, time.Second, New(time.Second).Backoff)
}
