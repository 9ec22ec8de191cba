package clinical

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/citamed/citamed/internal/platform/db"
)

type repoPG struct{ db db.DBTX }

func NewRepoPG(conn db.DBTX) Repository { return &repoPG{db: conn} }

func (r *repoPG) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.db)
}

func foreignKeyErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: unknown patient or appointment", ErrInvalid)
	}
	return err
}

func (r *repoPG) CreateRecord(ctx context.Context, rec *MedicalRecord) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_record (id, patient_id, doctor_id, appointment_id, date, diagnosis, treatment, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.PatientID, rec.DoctorID, rec.AppointmentID, rec.Date, rec.Diagnosis, rec.Treatment, rec.Notes)
	return foreignKeyErr(err)
}

func (r *repoPG) AddPrescription(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, medical_record_id, medication, dosage, frequency, duration, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.MedicalRecordID, p.Medication, p.Dosage, p.Frequency, p.Duration, p.Instructions)
	return err
}

func (r *repoPG) RecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.patient_id, m.doctor_id, d.full_name, m.appointment_id, m.date,
			m.diagnosis, m.treatment, m.notes
		FROM medical_record m
		JOIN doctor d ON d.id = m.doctor_id
		WHERE m.patient_id = $1
		ORDER BY m.date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*MedicalRecord
	byID := map[uuid.UUID]*MedicalRecord{}
	for rows.Next() {
		var m MedicalRecord
		if err := rows.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.DoctorName, &m.AppointmentID, &m.Date,
			&m.Diagnosis, &m.Treatment, &m.Notes); err != nil {
			return nil, err
		}
		m.Prescriptions = []Prescription{}
		records = append(records, &m)
		byID[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, m := range records {
		ids = append(ids, m.ID)
	}
	prows, err := r.conn(ctx).Query(ctx, `
		SELECT id, medical_record_id, medication, dosage, frequency, duration, instructions
		FROM prescription WHERE medical_record_id = ANY($1)
		ORDER BY created_at`, ids)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var p Prescription
		if err := prows.Scan(&p.ID, &p.MedicalRecordID, &p.Medication, &p.Dosage, &p.Frequency, &p.Duration, &p.Instructions); err != nil {
			return nil, err
		}
		if m, ok := byID[p.MedicalRecordID]; ok {
			m.Prescriptions = append(m.Prescriptions, p)
		}
	}
	return records, prows.Err()
}

func (r *repoPG) LabResultsByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, test_name, result, unit, reference_range, status, date
		FROM lab_result WHERE patient_id = $1
		ORDER BY date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*LabResult
	for rows.Next() {
		var l LabResult
		if err := rows.Scan(&l.ID, &l.PatientID, &l.TestName, &l.Result, &l.Unit, &l.ReferenceRange, &l.Status, &l.Date); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}
