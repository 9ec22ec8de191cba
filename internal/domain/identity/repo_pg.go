package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/citamed/citamed/internal/platform/db"
)

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// =========== Patient Repository ===========

type patientRepoPG struct{ db db.DBTX }

func NewPatientRepoPG(conn db.DBTX) PatientRepository { return &patientRepoPG{db: conn} }

func (r *patientRepoPG) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.db)
}

const patientCols = `id, user_id, full_name, email, phone_number, date_of_birth, gender,
	address, city, state, zip_code, country, blood_type, allergies, medical_history,
	height, weight, emergency_contact_name, emergency_contact_phone, emergency_contact_relation,
	primary_insurance, insurance_policy_number, insurance_group_number, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Email, &p.PhoneNumber, &p.DateOfBirth, &p.Gender,
		&p.Address, &p.City, &p.State, &p.ZipCode, &p.Country, &p.BloodType, &p.Allergies, &p.MedicalHistory,
		&p.Height, &p.Weight, &p.EmergencyContact.Name, &p.EmergencyContact.Phone, &p.EmergencyContact.Relation,
		&p.Insurance.Primary, &p.Insurance.PolicyNumber, &p.Insurance.GroupNumber, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, user_id, full_name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.FullName, p.Email).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE user_id = $1`, userID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET full_name=$2, email=$3, phone_number=$4, date_of_birth=$5, gender=$6,
			address=$7, city=$8, state=$9, zip_code=$10, country=$11, blood_type=$12,
			allergies=$13, medical_history=$14, height=$15, weight=$16,
			emergency_contact_name=$17, emergency_contact_phone=$18, emergency_contact_relation=$19,
			primary_insurance=$20, insurance_policy_number=$21, insurance_group_number=$22,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.Email, p.PhoneNumber, p.DateOfBirth, p.Gender,
		p.Address, p.City, p.State, p.ZipCode, p.Country, p.BloodType,
		p.Allergies, p.MedicalHistory, p.Height, p.Weight,
		p.EmergencyContact.Name, p.EmergencyContact.Phone, p.EmergencyContact.Relation,
		p.Insurance.Primary, p.Insurance.PolicyNumber, p.Insurance.GroupNumber).Scan(&p.UpdatedAt)
	return mapErr(err)
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ db db.DBTX }

func NewDoctorRepoPG(conn db.DBTX) DoctorRepository { return &doctorRepoPG{db: conn} }

func (r *doctorRepoPG) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.db)
}

const doctorCols = `id, user_id, full_name, specialization, available_days, start_time, end_time,
	is_active, created_at, updated_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.FullName, &d.Specialization, &d.AvailableDays,
		&d.StartTime, &d.EndTime, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor (id, user_id, full_name, specialization, available_days, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.FullName, d.Specialization, d.AvailableDays, d.StartTime, d.EndTime, d.IsActive,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapErr(err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID string) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE user_id = $1`, userID))
}

func (r *doctorRepoPG) UpdateAvailability(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctor SET specialization=$2, available_days=$3, start_time=$4, end_time=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Specialization, d.AvailableDays, d.StartTime, d.EndTime).Scan(&d.UpdatedAt)
	return mapErr(err)
}

func (r *doctorRepoPG) ListActive(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctor WHERE is_active ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
