package booking

import (
	"slices"
	"time"
)

// weekdayNames are the capitalized Spanish day names doctors list in their
// availability, indexed by time.Weekday.
var weekdayNames = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miércoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sábado",
}

// WeekdayName returns the capitalized Spanish name of d, e.g. "Miércoles".
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// IsWeekdayName reports whether name is one of the day names WeekdayName
// produces.
func IsWeekdayName(name string) bool {
	return slices.Contains(weekdayNames[:], name)
}

// DateSelectable reports whether date can be booked with doctor, as of now.
// Dates before now's calendar day are never selectable. Without a doctor no
// further restriction applies; otherwise the date's weekday must be one of
// the doctor's available days.
func DateSelectable(doctor *Doctor, date, now time.Time) bool {
	if date.IsZero() || beforeDay(date, now.In(date.Location())) {
		return false
	}
	if doctor == nil {
		return true
	}
	return slices.Contains(doctor.AvailableDays, WeekdayName(date.Weekday()))
}

// beforeDay compares calendar days, ignoring the time of day.
func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
