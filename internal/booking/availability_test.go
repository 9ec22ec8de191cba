package booking

import (
	"testing"
	"time"
)

// 2026-10-16 is a Friday.
var friday = time.Date(2026, 10, 16, 11, 20, 0, 0, time.UTC)

func TestWeekdayName(t *testing.T) {
	tests := map[time.Weekday]string{
		time.Monday:    "Lunes",
		time.Wednesday: "Miércoles",
		time.Saturday:  "Sábado",
		time.Sunday:    "Domingo",
	}
	for day, want := range tests {
		if got := WeekdayName(day); got != want {
			t.Errorf("WeekdayName(%s) = %q, want %q", day, got, want)
		}
	}
	if !IsWeekdayName("Miércoles") || IsWeekdayName("miercoles") {
		t.Error("IsWeekdayName must match the capitalized accented names only")
	}
}

func TestDateSelectable_AvailableDays(t *testing.T) {
	doc := &Doctor{ID: "d1", AvailableDays: []string{"Lunes", "Miércoles"}}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"monday", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), true},
		{"tuesday", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), false},
		{"wednesday", time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), true},
		{"past wednesday", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateSelectable(doc, tt.date, friday); got != tt.want {
				t.Errorf("DateSelectable(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestDateSelectable_Today(t *testing.T) {
	doc := &Doctor{AvailableDays: []string{"Viernes"}}
	midnight := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	if !DateSelectable(doc, midnight, friday) {
		t.Error("today must stay selectable for the rest of the day")
	}
}

func TestDateSelectable_NoDoctor(t *testing.T) {
	if !DateSelectable(nil, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), friday) {
		t.Error("without a doctor any future date is selectable")
	}
	if DateSelectable(nil, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), friday) {
		t.Error("past dates are never selectable")
	}
}

func TestDateSelectable_NoAvailableDays(t *testing.T) {
	doc := &Doctor{}
	if DateSelectable(doc, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), friday) {
		t.Error("a doctor without available days offers no dates")
	}
}
