package schedule

import "time"

// AddMonths adds n calendar months to t, clamping the day to the last day of
// the target month (Jan 31 + 1 month is Feb 28/29, not Mar 3).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// MonthsBetween returns the number of whole months elapsed from start to
// now, consistent with AddMonths: the result m is the largest value for
// which AddMonths(start, m) is not after now. Partial months never count.
func MonthsBetween(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	now = now.In(start.Location())
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	for months > 0 && AddMonths(start, months).After(now) {
		months--
	}
	return months
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
