package scheduler

import "time"

// Interval is one supported schedule granularity.
type Interval struct {
	Every time.Duration
	Cron  string // six fields, seconds first
}

var intervals = []Interval{
	{10 * time.Second, "*/10 * * * * *"},
	{30 * time.Second, "*/30 * * * * *"},
	{time.Minute, "0 * * * * *"},
	{5 * time.Minute, "0 */5 * * * *"},
	{15 * time.Minute, "0 */15 * * * *"},
	{30 * time.Minute, "0 */30 * * * *"},
	{time.Hour, "0 0 * * * *"},
	{24 * time.Hour, "0 0 0 * * *"},
	{5 * 24 * time.Hour, "0 0 0 */5 * *"},
	{7 * 24 * time.Hour, "0 0 0 */7 * *"},
	{15 * 24 * time.Hour, "0 0 0 */15 * *"},
	{30 * 24 * time.Hour, "0 0 0 */30 * *"},
}

// IntervalFor picks the supported class closest to seconds; ties go to the shorter one.
func IntervalFor(seconds int) Interval {
	want := time.Duration(seconds) * time.Second
	best := intervals[0]
	bestDiff := absDur(want - best.Every)

	for _, iv := range intervals[1:] {
		if d := absDur(want - iv.Every); d < bestDiff {
			best, bestDiff = iv, d
		}
	}
	return best
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
