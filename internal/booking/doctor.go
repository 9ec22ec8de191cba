// Package booking implements the patient-side appointment booking workflow:
// slot generation, date availability, the step-by-step wizard and the
// submission of the resulting appointment request.
package booking

import "strings"

// Doctor is the booking-relevant projection of a doctor listing entry.
// StartTime and EndTime are "HH:MM" times of day; StartTime < EndTime is
// assumed, not enforced.
type Doctor struct {
	ID             string   `json:"id"`
	FullName       string   `json:"fullName"`
	Specialization string   `json:"specialization"`
	AvailableDays  []string `json:"availableDays"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
}

// Specialty is one entry of the medical specialty catalog.
type Specialty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Specialties is the catalog offered in the first wizard step.
var Specialties = []Specialty{
	{ID: "cardiologia", Name: "Cardiología"},
	{ID: "pediatria", Name: "Pediatría"},
	{ID: "dermatologia", Name: "Dermatología"},
	{ID: "ginecologia", Name: "Ginecología"},
	{ID: "oftalmologia", Name: "Oftalmología"},
	{ID: "odontologia", Name: "Odontología"},
	{ID: "neurologia", Name: "Neurología"},
	{ID: "psiquiatria", Name: "Psiquiatría"},
	{ID: "traumatologia", Name: "Traumatología"},
	{ID: "medicina-general", Name: "Medicina General"},
}

// SpecialtyByID looks a specialty up in the catalog.
func SpecialtyByID(id string) (Specialty, bool) {
	for _, s := range Specialties {
		if s.ID == id {
			return s, true
		}
	}
	return Specialty{}, false
}

// InSpecialty reports whether the doctor practices the given specialty.
// Matching is case-insensitive on the specialty id.
func (d Doctor) InSpecialty(specialtyID string) bool {
	return specialtyID != "" && strings.EqualFold(d.Specialization, specialtyID)
}

// DoctorsForSpecialty filters doctors down to one specialty, preserving order.
func DoctorsForSpecialty(doctors []Doctor, specialtyID string) []Doctor {
	var out []Doctor
	for _, d := range doctors {
		if d.InSpecialty(specialtyID) {
			out = append(out, d)
		}
	}
	return out
}
