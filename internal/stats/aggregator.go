package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/senderwatch/internal/analytics"
	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/logging"
)

// Bucket is the message count of one period.
type Bucket struct {
	PeriodStart time.Time `json:"periodStart"`
	Count       int64     `json:"count"`
}

// Counter answers bucketed count queries. *analytics.Client implements it.
type Counter interface {
	QueryCounts(ctx context.Context, q analytics.CountQuery) ([]analytics.BucketCount, error)
}

// Aggregator builds gap-free bucket series for a sender.
type Aggregator struct {
	counts Counter
	logger *slog.Logger
}

// NewAggregator creates an Aggregator reading from counts.
func NewAggregator(counts Counter, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		counts: counts,
		logger: logging.WithComponent(logger, "stats"),
	}
}

// SenderStats returns one bucket per period of q, ascending, with zero
// counts for periods the backend did not report. The first and last
// buckets are clipped to the query range when it does not start or end on
// a period boundary.
func (a *Aggregator) SenderStats(ctx context.Context, q Query) ([]Bucket, error) {
	if q.sender == "" {
		return nil, apperrors.NewInvalidRangeError("query was not built with NewQuery")
	}

	boundaries := Boundaries(q)
	starts := clippedStarts(q, boundaries)

	index := make(map[int64]int, len(starts))
	for i, s := range starts {
		index[s.UnixNano()] = i
	}

	counts, err := a.counts.QueryCounts(ctx, analytics.CountQuery{
		Sender: q.sender,
		Starts: starts,
		End:    q.end,
	})
	if err != nil {
		a.logger.Warn("sender stats unavailable", logging.Sender(q.sender), logging.Err(err))
		return nil, &apperrors.AggregationUnavailableError{Sender: q.sender, Err: err}
	}

	buckets := make([]Bucket, len(boundaries))
	for i, b := range boundaries {
		buckets[i] = Bucket{PeriodStart: b}
	}
	for _, c := range counts {
		i, ok := index[c.Start.UnixNano()]
		if !ok {
			a.logger.Debug("ignoring count for unknown bucket", logging.Sender(q.sender),
				slog.Time("bucket_start", c.Start))
			continue
		}
		if c.Count > 0 {
			buckets[i].Count += c.Count
		}
	}

	return buckets, nil
}

// clippedStarts replaces the first aligned boundary with the query start.
func clippedStarts(q Query, boundaries []time.Time) []time.Time {
	starts := make([]time.Time, len(boundaries))
	copy(starts, boundaries)
	if len(starts) > 0 {
		starts[0] = q.start
	}
	return starts
}

// Total sums the counts of buckets.
func Total(buckets []Bucket) int64 {
	var n int64
	for _, b := range buckets {
		n += b.Count
	}
	return n
}
