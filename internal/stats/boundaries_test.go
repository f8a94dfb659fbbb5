package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloor(t *testing.T) {
	at := time.Date(2024, time.March, 6, 13, 45, 0, 0, time.UTC) // Wednesday

	assert.Equal(t, date(2024, time.March, 6), Floor(PeriodDay, at))
	assert.Equal(t, date(2024, time.March, 3), Floor(PeriodWeek, at))
	assert.Equal(t, date(2024, time.March, 1), Floor(PeriodMonth, at))

	// Sunday is its own week start.
	assert.Equal(t, date(2024, time.March, 3), Floor(PeriodWeek, date(2024, time.March, 3)))
	// Week start crossing a month boundary.
	assert.Equal(t, date(2024, time.February, 25), Floor(PeriodWeek, date(2024, time.March, 1)))
}

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		period Period
		start  time.Time
		end    time.Time
		want   []time.Time
	}{
		{
			name:   "days",
			period: PeriodDay,
			start:  time.Date(2024, 2, 28, 18, 0, 0, 0, time.UTC),
			end:    date(2024, 3, 1),
			want:   []time.Time{date(2024, 2, 28), date(2024, 2, 29), date(2024, 3, 1)},
		},
		{
			name:   "weeks",
			period: PeriodWeek,
			start:  date(2024, 3, 6),
			end:    date(2024, 3, 17),
			want:   []time.Time{date(2024, 3, 3), date(2024, 3, 10), date(2024, 3, 17)},
		},
		{
			name:   "months across a year",
			period: PeriodMonth,
			start:  date(2023, 11, 15),
			end:    date(2024, 2, 1),
			want:   []time.Time{date(2023, 11, 1), date(2023, 12, 1), date(2024, 1, 1), date(2024, 2, 1)},
		},
		{
			name:   "single instant",
			period: PeriodDay,
			start:  date(2024, 3, 1),
			end:    date(2024, 3, 1),
			want:   []time.Time{date(2024, 3, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuery("a@b.c", tt.period, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Boundaries(q))
		})
	}
}

func TestBoundaries_ContiguousWithoutGaps(t *testing.T) {
	for _, period := range []Period{PeriodDay, PeriodWeek, PeriodMonth} {
		t.Run(string(period), func(t *testing.T) {
			q, err := NewQuery("a@b.c", period, date(2023, 1, 17), date(2024, 12, 3))
			require.NoError(t, err)

			b := Boundaries(q)
			require.NotEmpty(t, b)
			assert.False(t, b[0].After(q.Start()))
			assert.Equal(t, Floor(period, q.End()), b[len(b)-1])
			for i := 1; i < len(b); i++ {
				assert.Equal(t, next(period, b[i-1]), b[i])
			}
		})
	}
}
