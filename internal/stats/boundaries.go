package stats

import "time"

// Floor returns the start of the period containing t, in UTC.
// Weeks start on Sunday; months on the 1st.
func Floor(period Period, t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch period {
	case PeriodWeek:
		return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, time.UTC)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// next returns the start of the period after the one starting at t.
func next(period Period, t time.Time) time.Time {
	switch period {
	case PeriodWeek:
		return t.AddDate(0, 0, 7)
	case PeriodMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Boundaries returns the aligned start of every period from the one
// containing q.Start() through the one containing q.End(), ascending.
func Boundaries(q Query) []time.Time {
	var out []time.Time
	last := Floor(q.period, q.end)
	for t := Floor(q.period, q.start); !t.After(last); t = next(q.period, t) {
		out = append(out, t)
	}
	return out
}

// countBuckets counts the periods of q, stopping once limit is reached.
func countBuckets(q Query, limit int) int {
	n := 0
	last := Floor(q.period, q.end)
	for t := Floor(q.period, q.start); !t.After(last) && n < limit; t = next(q.period, t) {
		n++
	}
	return n
}
