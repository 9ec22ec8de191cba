package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, statuses []string, limit, offset int) ([]*Appointment, int, error)
	ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)
	ListUpcomingByPatient(ctx context.Context, patientID uuid.UUID, from time.Time, limit int) ([]*Appointment, error)
	DoctorPatients(ctx context.Context, doctorID uuid.UUID) ([]*PatientSummary, error)
	DoctorStats(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) (*DoctorStats, error)
	PatientStats(ctx context.Context, patientID uuid.UUID, now time.Time) (*PatientStats, error)
}
