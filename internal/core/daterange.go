package core

import "time"

// DayBounds returns the first and last representable instants of t's
// calendar day in t's location, as epoch milliseconds. The interval is
// inclusive on both ends: [00:00:00.000, 23:59:59.999].
func DayBounds(t time.Time) (startMillis, endMillis int64) {
	year, month, day := t.Date()
	loc := t.Location()

	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	end := time.Date(year, month, day, 23, 59, 59, int(999*time.Millisecond), loc)

	return start.UnixMilli(), end.UnixMilli()
}
