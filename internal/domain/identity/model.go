package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/citamed/citamed/internal/booking"
)

// DefaultSpecialization is shown for doctors that have not picked a specialty.
const DefaultSpecialization = "General"

// Default working hours of a newly provisioned doctor.
var (
	DefaultAvailableDays = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"}
	DefaultStartTime     = "09:00"
	DefaultEndTime       = "17:00"
)

// Doctor maps to the doctor table.
type Doctor struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"userId"`
	FullName       string    `json:"fullName"`
	Specialization *string   `json:"specialization,omitempty"`
	AvailableDays  []string  `json:"availableDays"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Booking projects the doctor onto the listing entry the booking wizard uses.
func (d *Doctor) Booking() booking.Doctor {
	spec := DefaultSpecialization
	if d.Specialization != nil && *d.Specialization != "" {
		spec = *d.Specialization
	}
	return booking.Doctor{
		ID:             d.ID.String(),
		FullName:       d.FullName,
		Specialization: spec,
		AvailableDays:  d.AvailableDays,
		StartTime:      d.StartTime,
		EndTime:        d.EndTime,
	}
}

// BookingDoctors projects a doctor listing.
func BookingDoctors(doctors []*Doctor) []booking.Doctor {
	out := make([]booking.Doctor, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, d.Booking())
	}
	return out
}

type EmergencyContact struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Relation *string `json:"relation,omitempty"`
}

type Insurance struct {
	Primary      *string `json:"primary,omitempty"`
	PolicyNumber *string `json:"policyNumber,omitempty"`
	GroupNumber  *string `json:"groupNumber,omitempty"`
}

// Patient maps to the patient table.
type Patient struct {
	ID               uuid.UUID        `json:"id"`
	UserID           string           `json:"userId"`
	FullName         string           `json:"fullName"`
	Email            *string          `json:"email,omitempty"`
	PhoneNumber      *string          `json:"phoneNumber,omitempty"`
	DateOfBirth      *time.Time       `json:"dateOfBirth,omitempty"`
	Gender           *string          `json:"gender,omitempty"`
	Address          *string          `json:"address,omitempty"`
	City             *string          `json:"city,omitempty"`
	State            *string          `json:"state,omitempty"`
	ZipCode          *string          `json:"zipCode,omitempty"`
	Country          *string          `json:"country,omitempty"`
	BloodType        *string          `json:"bloodType,omitempty"`
	Allergies        *string          `json:"allergies,omitempty"`
	MedicalHistory   *string          `json:"medicalHistory,omitempty"`
	Height           *float64         `json:"height,omitempty"`
	Weight           *float64         `json:"weight,omitempty"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	Insurance        Insurance        `json:"insurance"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// PatientUpdate is a partial profile edit. Nil fields are left unchanged.
type PatientUpdate struct {
	FullName         *string           `json:"fullName"`
	Email            *string           `json:"email"`
	PhoneNumber      *string           `json:"phoneNumber"`
	DateOfBirth      *string           `json:"dateOfBirth"`
	Gender           *string           `json:"gender"`
	Address          *string           `json:"address"`
	City             *string           `json:"city"`
	State            *string           `json:"state"`
	ZipCode          *string           `json:"zipCode"`
	Country          *string           `json:"country"`
	BloodType        *string           `json:"bloodType"`
	Allergies        *string           `json:"allergies"`
	MedicalHistory   *string           `json:"medicalHistory"`
	Height           *float64          `json:"height"`
	Weight           *float64          `json:"weight"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
	Insurance        *Insurance        `json:"insurance"`
}

// AvailabilityUpdate replaces a doctor's working days and hours.
type AvailabilityUpdate struct {
	AvailableDays  []string `json:"availableDays"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	Specialization *string  `json:"specialization"`
}

// Profile is the clinical profile provisioned for an account.
type Profile struct {
	Role    string   `json:"role"`
	Patient *Patient `json:"patient,omitempty"`
	Doctor  *Doctor  `json:"doctor,omitempty"`
}
