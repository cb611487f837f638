package repository

import "time"

// dayBounds returns [start of day, start of next day) for t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// prevDay steps a calendar day back in loc, safe across DST changes.
func prevDay(t time.Time, loc *time.Location) time.Time {
	start, _ := dayBounds(t, loc)
	return start.AddDate(0, 0, -1)
}
