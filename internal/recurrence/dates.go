package recurrence

import (
	"time"

	"github.com/mnuddindev/cookpulse/pkg/utils"
)

// DateLayout is the ISO calendar-date layout used for every date key.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, utils.Validation("invalid_date", "dates must be formatted YYYY-MM-DD")
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Normalize drops the time of day, keeping the civil date t has in its own location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves start forward by n months keeping its day of month. When the target
// month is too short the day is clamped to the month's last day, or rolled into the
// following month under OverflowRoll.
func AddMonths(start time.Time, n int, overflow Overflow) time.Time {
	y, m, d := start.Date()
	if overflow == OverflowRoll {
		return time.Date(y, m+time.Month(n), d, 0, 0, 0, 0, time.UTC)
	}
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// NthWeekdayOfMonth returns the nth (1..5) given weekday of a month. When the month has
// fewer than n such weekdays the last one is returned.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (n-1)*7
	for day > DaysIn(year, month) {
		day -= 7
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// nthOf reports which occurrence of its weekday t is within its month.
func nthOf(t time.Time) int {
	return (t.Day()-1)/7 + 1
}
