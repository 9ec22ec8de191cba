package scheduling

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled  = "SCHEDULED"
	StatusConfirmed  = "CONFIRMED"
	StatusCheckedIn  = "CHECKED_IN"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusNoShow     = "NO_SHOW"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCheckedIn: true,
	StatusInProgress: true, StatusCompleted: true, StatusCancelled: true,
	StatusNoShow: true,
}

const (
	TypeRoutineCheckup     = "ROUTINE_CHECKUP"
	TypeFollowUp           = "FOLLOW_UP"
	TypeUrgent             = "URGENT"
	TypeSpecialistReferral = "SPECIALIST_REFERRAL"
	TypeVaccination        = "VACCINATION"
	TypeLabResults         = "LAB_RESULTS"
)

var validTypes = map[string]bool{
	TypeRoutineCheckup: true, TypeFollowUp: true, TypeUrgent: true,
	TypeSpecialistReferral: true, TypeVaccination: true, TypeLabResults: true,
}

// AgendaStatuses are the statuses shown on a doctor's agenda.
var AgendaStatuses = []string{StatusScheduled, StatusCompleted, StatusInProgress}

// Appointment is a booked visit between a patient and a doctor.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patientId"`
	DoctorID        uuid.UUID `json:"doctorId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	Duration        int       `json:"duration"`
	Status          string    `json:"status"`
	AppointmentType string    `json:"appointmentType"`
	Reason          *string   `json:"reason,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// Filled on listings.
	PatientName    string `json:"patientName,omitempty"`
	DoctorName     string `json:"doctorName,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// Patch is a doctor's partial update of an appointment.
type Patch struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
	Reason *string `json:"reason"`
}

// PatientSummary is one row of a doctor's patient list.
type PatientSummary struct {
	PatientID    uuid.UUID `json:"patientId"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email,omitempty"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	LastVisit    time.Time `json:"lastVisit"`
	Appointments int       `json:"appointments"`
}

type DoctorStats struct {
	TotalPatients       int `json:"totalPatients"`
	PendingAppointments int `json:"pendingAppointments"`
	TodayAppointments   int `json:"todayAppointments"`
}

type PatientStats struct {
	TotalAppointments     int `json:"totalAppointments"`
	CompletedAppointments int `json:"completedAppointments"`
	UpcomingAppointments  int `json:"upcomingAppointments"`
}
