package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/senderwatch/internal/apperrors"
)

func TestStringArgs(t *testing.T) {
	args := map[string]interface{}{"sender": "  news@example.com ", "n": 3.0, "flag": "yes"}

	assert.Equal(t, "news@example.com", StringArg(args, "sender"))
	assert.Equal(t, "", StringArg(args, "missing"))

	_, err := RequiredString(args, "missing")
	assert.EqualError(t, err, "missing is required")

	assert.Equal(t, 3, IntArg(args, "n", 10))
	assert.Equal(t, 10, IntArg(args, "missing", 10))
	assert.True(t, BoolArg(args, "flag", false))
	assert.True(t, BoolArg(args, "missing", true))
}

func TestTimeArg(t *testing.T) {
	args := map[string]interface{}{
		"date":    "2024-03-10",
		"instant": "2024-03-10T09:30:00+01:00",
		"bad":     "10/03/2024",
	}

	got, err := TimeArg(args, "date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), got)

	got, err = TimeArg(args, "instant")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC), got.UTC())

	got, err = TimeArg(args, "missing")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = TimeArg(args, "bad")
	assert.True(t, apperrors.IsInvalidRange(err))

	got, err = EndOfDayArg(args, "date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC), got)

	got, err = EndOfDayArg(args, "instant")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Minute())
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult("trash thread", apperrors.NewConflictError("thread", "t1", "mark_read"))
	assert.True(t, res.IsError)

	res = ErrorResult("trash thread", errors.New("boom"))
	assert.True(t, res.IsError)
}

func TestJSONResult(t *testing.T) {
	res := JSONResult(map[string]int{"total": 7})
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
}
