package stats

import (
	"strings"
	"time"

	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/mailbox"
)

// Period is the bucket granularity.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// MaxBuckets caps the number of buckets a single query may produce.
const MaxBuckets = 1000

// ParsePeriod parses a period name, case-insensitively.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", apperrors.NewInvalidRangeError("unknown period %q (expected day, week or month)", s)
}

// Query is a validated stats request. The zero value is not valid; use NewQuery.
type Query struct {
	sender string
	period Period
	start  time.Time
	end    time.Time
}

// NewQuery validates and builds a Query. A zero start or end defaults to a
// lookback window ending now: 30 days, 12 weeks or 12 months.
func NewQuery(sender string, period Period, start, end time.Time) (Query, error) {
	return newQueryAt(time.Now(), sender, period, start, end)
}

func newQueryAt(now time.Time, sender string, period Period, start, end time.Time) (Query, error) {
	sender = mailbox.NormalizeAddress(sender)
	if sender == "" {
		return Query{}, apperrors.NewInvalidRangeError("sender is required")
	}
	if _, err := ParsePeriod(string(period)); err != nil {
		return Query{}, err
	}

	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = lookbackStart(period, end)
	}
	// Analytics backends store timestamps at millisecond precision.
	start = start.UTC().Truncate(time.Millisecond)
	end = end.UTC().Truncate(time.Millisecond)

	if start.After(end) {
		return Query{}, apperrors.NewInvalidRangeError("start %s is after end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	q := Query{sender: sender, period: period, start: start, end: end}
	if n := countBuckets(q, MaxBuckets+1); n > MaxBuckets {
		return Query{}, apperrors.NewInvalidRangeError("range produces more than %d %s buckets", MaxBuckets, period)
	}
	return q, nil
}

func lookbackStart(period Period, end time.Time) time.Time {
	switch period {
	case PeriodWeek:
		return end.AddDate(0, 0, -7*12)
	case PeriodMonth:
		return end.AddDate(0, -12, 0)
	default:
		return end.AddDate(0, 0, -30)
	}
}

// Sender returns the normalized sender address.
func (q Query) Sender() string { return q.sender }

// Period returns the bucket granularity.
func (q Query) Period() Period { return q.period }

// Start returns the inclusive range start (UTC).
func (q Query) Start() time.Time { return q.start }

// End returns the inclusive range end (UTC).
func (q Query) End() time.Time { return q.end }
