package forecast

import (
	"time"

	"cloud.google.com/go/civil"
)

// epoch anchors fixed-width buckets.
var epoch = civil.Date{Year: 1970, Month: time.January, Day: 1}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func weekdayOf(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// addMonths moves a year/month pair by n months, n may be negative.
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	m := int(month) - 1 + n
	return year + floorDiv(m, 12), time.Month(m-floorDiv(m, 12)*12) + 1
}

// monthsBetween counts whole calendar months from a's month to b's month.
func monthsBetween(a, b civil.Date) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}

// dayInMonth returns the given day of the month, or false when the month is too short.
func dayInMonth(year int, month time.Month, day int) (civil.Date, bool) {
	if day < 1 || day > daysIn(year, month) {
		return civil.Date{}, false
	}
	return civil.Date{Year: year, Month: month, Day: day}, true
}

// clampedDay returns the given day of the month, clamped to the month's last day.
func clampedDay(year int, month time.Month, day int) civil.Date {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func lastDayOfMonth(year int, month time.Month) civil.Date {
	return civil.Date{Year: year, Month: month, Day: daysIn(year, month)}
}

// nthWeekday returns the nth (1-based) given weekday of the month.
// n == -1 selects the last one.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) (civil.Date, bool) {
	if n == -1 {
		last := lastDayOfMonth(year, month)
		back := (int(weekdayOf(last)) - int(wd) + 7) % 7
		return last.AddDays(-back), true
	}
	first := civil.Date{Year: year, Month: month, Day: 1}
	offset := (int(wd) - int(weekdayOf(first)) + 7) % 7
	return dayInMonth(year, month, 1+offset+(n-1)*7)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func minDate(a, b civil.Date) civil.Date {
	if b.Before(a) {
		return b
	}
	return a
}
