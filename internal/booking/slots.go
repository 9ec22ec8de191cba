package booking

import (
	"fmt"
	"iter"
	"time"
)

// SlotDuration is the length of every bookable slot.
const SlotDuration = 30 * time.Minute

// slotLayout is the label format of a slot, a 24h time of day.
const slotLayout = "15:04"

// GenerateSlots yields the slot labels of a doctor's working day on date:
// start, start+30m, ... while the label is strictly before end. The sequence is
// empty when either bound is missing or malformed, when start >= end, or when
// no date is given. Labels are computed while ranging, and ranging again
// restarts from the first slot.
//
// Slots already taken by other appointments are not excluded.
func GenerateSlots(start, end string, date time.Time) iter.Seq[string] {
	return func(yield func(string) bool) {
		if date.IsZero() {
			return
		}
		from, ok := minuteOfDay(start)
		if !ok {
			return
		}
		to, ok := minuteOfDay(end)
		if !ok {
			return
		}
		step := int(SlotDuration / time.Minute)
		for m := from; m < to; m += step {
			if !yield(fmt.Sprintf("%02d:%02d", m/60, m%60)) {
				return
			}
		}
	}
}

// DoctorSlots is GenerateSlots over the doctor's configured working hours.
func DoctorSlots(d Doctor, date time.Time) iter.Seq[string] {
	return GenerateSlots(d.StartTime, d.EndTime, date)
}

// HasSlot reports whether label is one of the slots in seq.
func HasSlot(seq iter.Seq[string], label string) bool {
	for s := range seq {
		if s == label {
			return true
		}
	}
	return false
}

// SlotStart combines a calendar date with a slot label into an instant in the
// date's location.
func SlotStart(date time.Time, label string) (time.Time, error) {
	m, ok := minuteOfDay(label)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid slot %q", label)
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, m/60, m%60, 0, 0, date.Location()), nil
}

func minuteOfDay(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	t, err := time.Parse(slotLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
