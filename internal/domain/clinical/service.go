package clinical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/citamed/citamed/internal/domain/scheduling"
	"github.com/citamed/citamed/internal/platform/db"
	"github.com/citamed/citamed/internal/platform/metrics"
)

var (
	ErrInvalid  = errors.New("invalid medical record")
	ErrNotFound = errors.New("not found")
)

// Appointments is the part of scheduling a record can close.
type Appointments interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	db           db.TxBeginner
	repo         Repository
	appointments Appointments
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(conn db.TxBeginner, repo Repository, appts Appointments, m *metrics.Metrics) *Service {
	return &Service{db: conn, repo: repo, appointments: appts, metrics: m, now: time.Now}
}

// CreateMedicalRecord stores the record and its prescriptions in one
// transaction. When the record closes an appointment, that appointment must
// belong to the doctor and patient and is marked COMPLETED in the same
// transaction.
func (s *Service) CreateMedicalRecord(ctx context.Context, doctorID uuid.UUID, in RecordInput) (*MedicalRecord, error) {
	rec, err := s.buildRecord(doctorID, in)
	if err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, s.db, func(ctx context.Context) error {
		if rec.AppointmentID != nil {
			appt, err := s.appointments.GetAppointment(ctx, *rec.AppointmentID)
			if errors.Is(err, scheduling.ErrNotFound) {
				return fmt.Errorf("%w: appointment", ErrNotFound)
			}
			if err != nil {
				return err
			}
			if appt.DoctorID != doctorID || appt.PatientID != rec.PatientID {
				return fmt.Errorf("%w: appointment", ErrNotFound)
			}
		}

		if err := s.repo.CreateRecord(ctx, rec); err != nil {
			return err
		}
		for i := range rec.Prescriptions {
			rec.Prescriptions[i].MedicalRecordID = rec.ID
			if err := s.repo.AddPrescription(ctx, &rec.Prescriptions[i]); err != nil {
				return err
			}
		}

		if rec.AppointmentID != nil {
			return s.appointments.MarkCompleted(ctx, *rec.AppointmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.MedicalRecordCreated()
	return rec, nil
}

func (s *Service) buildRecord(doctorID uuid.UUID, in RecordInput) (*MedicalRecord, error) {
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("%w: patientId is required", ErrInvalid)
	}
	diagnosis := strings.TrimSpace(in.Diagnosis)
	if diagnosis == "" {
		return nil, fmt.Errorf("%w: diagnosis is required", ErrInvalid)
	}

	rec := &MedicalRecord{
		PatientID:     patientID,
		DoctorID:      doctorID,
		Date:          s.now(),
		Diagnosis:     diagnosis,
		Treatment:     optional(in.Treatment),
		Notes:         optional(in.Notes),
		Prescriptions: make([]Prescription, 0, len(in.Prescriptions)),
	}
	if in.AppointmentID != "" {
		id, err := uuid.Parse(in.AppointmentID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid appointmentId", ErrInvalid)
		}
		rec.AppointmentID = &id
	}
	for i, p := range in.Prescriptions {
		p.Medication = strings.TrimSpace(p.Medication)
		p.Dosage = strings.TrimSpace(p.Dosage)
		if p.Medication == "" || p.Dosage == "" {
			return nil, fmt.Errorf("%w: prescription %d needs medication and dosage", ErrInvalid, i+1)
		}
		rec.Prescriptions = append(rec.Prescriptions, Prescription{
			Medication:   p.Medication,
			Dosage:       p.Dosage,
			Frequency:    p.Frequency,
			Duration:     p.Duration,
			Instructions: p.Instructions,
		})
	}
	return rec, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// MedicalHistory returns the patient's records and lab results, newest first.
func (s *Service) MedicalHistory(ctx context.Context, patientID uuid.UUID) (*History, error) {
	records, err := s.repo.RecordsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	labs, err := s.repo.LabResultsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*MedicalRecord{}
	}
	if labs == nil {
		labs = []*LabResult{}
	}
	return &History{MedicalRecords: records, LabResults: labs}, nil
}
