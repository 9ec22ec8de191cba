package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/citamed/citamed/internal/booking"
	"github.com/citamed/citamed/internal/platform/auth"
	"github.com/citamed/citamed/internal/platform/metrics"
)

var tracer = otel.Tracer("citamed/scheduling")

var (
	ErrNotFound  = errors.New("appointment not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid appointment")
)

// Directory resolves the clinical profiles behind signed-in accounts.
type Directory interface {
	PatientIDForUser(ctx context.Context, userID string) (uuid.UUID, error)
	DoctorIDForUser(ctx context.Context, userID string) (uuid.UUID, error)
}

// Notifier is told about every appointment created.
type Notifier interface {
	AppointmentBooked(ctx context.Context, a *Appointment) error
}

type Service struct {
	appointments AppointmentRepository
	directory    Directory
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(appts AppointmentRepository, dir Directory, notifier Notifier, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appts,
		directory:    dir,
		notifier:     notifier,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// PatientFor returns the patient profile of user, or ErrForbidden.
func (s *Service) PatientFor(ctx context.Context, user *auth.User) (uuid.UUID, error) {
	if user == nil {
		return uuid.Nil, ErrForbidden
	}
	id, err := s.directory.PatientIDForUser(ctx, user.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: no patient profile", ErrForbidden)
	}
	return id, nil
}

// DoctorFor returns the doctor profile of user, or ErrForbidden.
func (s *Service) DoctorFor(ctx context.Context, user *auth.User) (uuid.UUID, error) {
	if user == nil {
		return uuid.Nil, ErrForbidden
	}
	id, err := s.directory.DoctorIDForUser(ctx, user.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: no doctor profile", ErrForbidden)
	}
	return id, nil
}

// CreateAppointment books a on behalf of user. Patients may only book for
// their own profile. Overlapping appointments are not detected.
func (s *Service) CreateAppointment(ctx context.Context, user *auth.User, a *Appointment) error {
	ctx, span := tracer.Start(ctx, "scheduling.CreateAppointment")
	defer span.End()

	if err := validateNew(a); err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(
		attribute.String("appointment.doctor_id", a.DoctorID.String()),
		attribute.String("appointment.type", a.AppointmentType),
	)

	if user != nil && user.Role == auth.RolePatient {
		own, err := s.PatientFor(ctx, user)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if own != a.PatientID {
			err := fmt.Errorf("%w: patients can only book for themselves", ErrForbidden)
			span.RecordError(err)
			return err
		}
	}

	a.Status = StatusScheduled
	a.Duration = int(booking.SlotDuration / time.Minute)
	if err := s.appointments.Create(ctx, a); err != nil {
		span.RecordError(err)
		return err
	}
	s.metrics.AppointmentBooked(a.AppointmentType)

	if s.notifier != nil {
		if err := s.notifier.AppointmentBooked(ctx, a); err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("confirmation email failed")
		}
	}
	return nil
}

func validateNew(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patientId is required", ErrInvalid)
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctorId is required", ErrInvalid)
	}
	if a.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalid)
	}
	if a.EndTime.IsZero() {
		return fmt.Errorf("%w: endTime is required", ErrInvalid)
	}
	if a.AppointmentType == "" {
		return fmt.Errorf("%w: appointmentType is required", ErrInvalid)
	}
	if !validTypes[a.AppointmentType] {
		return fmt.Errorf("%w: unknown appointmentType %s", ErrInvalid, a.AppointmentType)
	}
	if !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("%w: endTime must be after startTime", ErrInvalid)
	}
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// UpdateByDoctor applies p to one of the doctor's appointments. Appointments
// of other doctors are reported as not found.
func (s *Service) UpdateByDoctor(ctx context.Context, doctorID, id uuid.UUID, p Patch) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != doctorID {
		return nil, ErrNotFound
	}

	changed := false
	if p.Status != nil {
		if !validStatuses[*p.Status] {
			return nil, fmt.Errorf("%w: invalid status %s", ErrInvalid, *p.Status)
		}
		changed = *p.Status != a.Status
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = p.Notes
	}
	if p.Reason != nil {
		a.Reason = p.Reason
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	if changed {
		s.metrics.AppointmentStatusChanged(a.Status)
	}
	return a, nil
}

// CancelByPatient cancels one of the patient's own appointments.
func (s *Service) CancelByPatient(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patientID {
		return nil, ErrNotFound
	}
	switch a.Status {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalid, a.Status)
	}

	a.Status = StatusCancelled
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	s.metrics.AppointmentStatusChanged(a.Status)
	return a, nil
}

// MarkCompleted sets the appointment to COMPLETED. It joins a transaction
// carried by ctx.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	if err := s.appointments.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return err
	}
	s.metrics.AppointmentStatusChanged(StatusCompleted)
	return nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

// ListForDoctor lists the doctor's appointments by start time. No statuses
// means all of them.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, statuses []string, limit, offset int) ([]*Appointment, int, error) {
	for _, st := range statuses {
		if !validStatuses[st] {
			return nil, 0, fmt.Errorf("%w: invalid status %s", ErrInvalid, st)
		}
	}
	return s.appointments.ListByDoctor(ctx, doctorID, statuses, limit, offset)
}

func (s *Service) DoctorPatients(ctx context.Context, doctorID uuid.UUID) ([]*PatientSummary, error) {
	return s.appointments.DoctorPatients(ctx, doctorID)
}

// DoctorDay lists the doctor's appointments of the current calendar day.
func (s *Service) DoctorDay(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	dayStart := s.today()
	return s.appointments.ListByDoctorBetween(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
}

// UpcomingForPatient returns the next SCHEDULED or CONFIRMED appointments,
// soonest first.
func (s *Service) UpcomingForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Appointment, error) {
	return s.appointments.ListUpcomingByPatient(ctx, patientID, s.now(), limit)
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// DoctorStats counts appointments for the doctor; "today" is the current
// calendar day in the service clock's location.
func (s *Service) DoctorStats(ctx context.Context, doctorID uuid.UUID) (*DoctorStats, error) {
	dayStart := s.today()
	return s.appointments.DoctorStats(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
}

func (s *Service) PatientStats(ctx context.Context, patientID uuid.UUID) (*PatientStats, error) {
	return s.appointments.PatientStats(ctx, patientID, s.now())
}
