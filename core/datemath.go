package core

import "time"

// DayFormat renders projected action dates, e.g. "Tuesday, 19 March 2024".
const DayFormat = "Monday, 2 January 2006"

// ReferenceDay returns midnight in loc, periodDays calendar days before now's date.
// Accounts created before this instant are due.
func ReferenceDay(now time.Time, loc *time.Location, periodDays int) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d-periodDays, 0, 0, 0, 0, loc)
}

// ProjectedActionDate is createdAt plus periodDays+1 calendar days in loc; the
// registration day itself does not count. Wall-clock time is kept across DST
// changes, so the result is always the same time of day as createdAt.
func ProjectedActionDate(createdAt time.Time, loc *time.Location, periodDays int) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return createdAt.In(loc).AddDate(0, 0, periodDays+1)
}

// FormatDay renders t in DayFormat.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}
