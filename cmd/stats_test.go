package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/stats"
)

func TestBuildStatsQuery(t *testing.T) {
	q, err := buildStatsQuery("News@Example.com", "DAY", "2024-03-01", "2024-03-03")
	require.NoError(t, err)

	assert.Equal(t, "news@example.com", q.Sender())
	assert.Equal(t, stats.PeriodDay, q.Period())
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), q.Start())
	assert.Equal(t, time.Date(2024, time.March, 3, 23, 59, 59, int(999*time.Millisecond), time.UTC), q.End())
}

func TestBuildStatsQuery_Invalid(t *testing.T) {
	tests := []struct {
		name               string
		period, start, end string
	}{
		{name: "unknown period", period: "year"},
		{name: "bad start", period: "week", start: "yesterday"},
		{name: "bad end", period: "week", end: "03/01/2024"},
		{name: "start after end", period: "day", start: "2024-03-10", end: "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildStatsQuery("news@example.com", tt.period, tt.start, tt.end)
			require.Error(t, err)
			assert.True(t, apperrors.IsInvalidRange(err), "expected an invalid range error, got %v", err)
		})
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	err := printStats(&buf, statsReport{
		Sender: "news@example.com",
		Period: stats.PeriodWeek,
		Total:  7,
		Buckets: []stats.Bucket{
			{PeriodStart: time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)},
			{PeriodStart: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), Count: 7},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Messages from news@example.com per week")
	assert.Regexp(t, `2024-03-03\s+0\n`, out)
	assert.Regexp(t, `2024-03-10\s+7\n`, out)
	assert.Regexp(t, `TOTAL\s+7\n`, out)
}

func TestPrintStats_Month(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStats(&buf, statsReport{
		Sender:  "news@example.com",
		Period:  stats.PeriodMonth,
		Buckets: []stats.Bucket{{PeriodStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Count: 2}},
		Total:   2,
	}))
	assert.Regexp(t, `2024-03\s+2\n`, buf.String())
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "senderwatch version "+version)
}
