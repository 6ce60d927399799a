package types

import (
	"time"
)

// AddClampedMonths adds years and months to t keeping the day of month,
// clamped to the last day of the target month (Jan 31 + 1 month = Feb 28/29).
func AddClampedMonths(t time.Time, years, months int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	total := int(m) - 1 + months
	newY := y + years + total/12
	newM := total % 12
	if newM < 0 {
		newM += 12
		newY--
	}
	month := time.Month(newM + 1)

	lastDay := DaysInMonth(newY, month, t.Location())
	if d > lastDay {
		d = lastDay
	}

	return time.Date(newY, month, d, h, min, sec, t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// OverlapSeconds returns the length in seconds of the intersection of
// [aStart, aEnd] and [bStart, bEnd]. A nil bEnd is treated as open-ended.
func OverlapSeconds(aStart, aEnd, bStart time.Time, bEnd *time.Time) float64 {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd != nil && bEnd.Before(end) {
		end = *bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Seconds()
}
