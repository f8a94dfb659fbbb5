package analytics

import (
	"context"
	"errors"
	"time"
)

// CountQuery asks for message counts from Sender in contiguous buckets.
// Bucket i covers [Starts[i], Starts[i+1]); the last bucket covers
// [Starts[len-1], End], End inclusive. Starts must be ascending.
type CountQuery struct {
	Sender string
	Starts []time.Time
	End    time.Time
}

// BucketCount is the number of messages in the bucket beginning at Start.
type BucketCount struct {
	Start time.Time
	Count int64
}

// API is the analytics backend consumed by Client. Implementations may
// return a subset of the buckets; an absent bucket means zero.
type API interface {
	QueryCounts(ctx context.Context, q CountQuery) ([]BucketCount, error)
}

// Named is implemented by backends that report their name for metrics and spans.
type Named interface {
	Backend() string
}

// Validate checks the structural invariants of q.
func (q CountQuery) Validate() error {
	if q.Sender == "" {
		return errors.New("sender is required")
	}
	if len(q.Starts) == 0 {
		return errors.New("at least one bucket start is required")
	}
	for i := 1; i < len(q.Starts); i++ {
		if !q.Starts[i].After(q.Starts[i-1]) {
			return errors.New("bucket starts must be strictly ascending")
		}
	}
	if q.End.Before(q.Starts[len(q.Starts)-1]) {
		return errors.New("end must not precede the last bucket start")
	}
	return nil
}

// upperEdges returns the exclusive upper edge of every bucket. The last edge
// is one millisecond past End, the resolution both backends store.
func (q CountQuery) upperEdges() []time.Time {
	edges := make([]time.Time, len(q.Starts))
	for i := range q.Starts {
		if i+1 < len(q.Starts) {
			edges[i] = q.Starts[i+1]
			continue
		}
		edges[i] = q.End.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return edges
}
