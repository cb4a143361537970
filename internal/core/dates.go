package core

import "time"

// NextDueDate returns the same day-of-month one calendar month ahead. When
// the target month is shorter than the source day (Jan 31 -> Feb), the day
// clamps to the last valid day of the target month. Total over all calendar
// dates: every valid input produces a valid output.
func NextDueDate(d Date) Date {
	year, month, day := d.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, int(month), day)
}

// lastDayOfMonth uses day-zero normalization of the following month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
