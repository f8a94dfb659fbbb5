package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_QueryCounts(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "m1", "news@example.com", day(3).Add(time.Hour)))
	require.NoError(t, s.Record(ctx, "m2", "News@Example.com", day(9)))
	require.NoError(t, s.Record(ctx, "m3", "news@example.com", day(10)))
	require.NoError(t, s.Record(ctx, "m4", "news@example.com", day(16)))
	require.NoError(t, s.Record(ctx, "m5", "news@example.com", day(16).Add(time.Millisecond)))
	require.NoError(t, s.Record(ctx, "m6", "other@example.com", day(4)))
	require.NoError(t, s.Record(ctx, "m7", "news@example.com", day(2)))

	counts, err := s.QueryCounts(ctx, CountQuery{
		Sender: "NEWS@example.com",
		Starts: []time.Time{day(3), day(10)},
		End:    day(16),
	})
	require.NoError(t, err)

	assert.Equal(t, []BucketCount{
		{Start: day(3), Count: 2},
		{Start: day(10), Count: 2},
	}, counts)
}

func TestSQLiteStore_QueryCounts_EmptyBuckets(t *testing.T) {
	s := newTestSQLiteStore(t)

	counts, err := s.QueryCounts(context.Background(), CountQuery{
		Sender: "nobody@example.com",
		Starts: []time.Time{day(1), day(2), day(3)},
		End:    day(3).Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, counts, 3)
	for _, c := range counts {
		assert.Zero(t, c.Count)
	}
}

func TestSQLiteStore_RecordReplaces(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "m1", "news@example.com", day(3)))
	require.NoError(t, s.Record(ctx, "m1", "news@example.com", day(3)))

	counts, err := s.QueryCounts(ctx, CountQuery{Sender: "news@example.com", Starts: []time.Time{day(3)}, End: day(4)})
	require.NoError(t, err)
	assert.Equal(t, []BucketCount{{Start: day(3), Count: 1}}, counts)
}

func TestSQLiteStore_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), "m1", "a@b.c", day(1)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	counts, err := s.QueryCounts(context.Background(), CountQuery{Sender: "a@b.c", Starts: []time.Time{day(1)}, End: day(1)})
	require.NoError(t, err)
	assert.Equal(t, []BucketCount{{Start: day(1), Count: 1}}, counts)
	assert.Equal(t, "sqlite", s.Backend())
}
