package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/citamed/citamed/internal/platform/db"
)

type appointmentRepoPG struct{ db db.DBTX }

func NewAppointmentRepoPG(conn db.DBTX) AppointmentRepository {
	return &appointmentRepoPG{db: conn}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.db)
}

const apptCols = `a.id, a.patient_id, a.doctor_id, a.start_time, a.end_time, a.duration,
	a.status, a.appointment_type, a.reason, a.notes, a.created_at, a.updated_at`

const apptListCols = apptCols + `, p.full_name, d.full_name, COALESCE(d.specialization, 'General')`

const apptListFrom = ` FROM appointment a
	JOIN patient p ON p.id = a.patient_id
	JOIN doctor d ON d.id = a.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartTime, &a.EndTime, &a.Duration,
		&a.Status, &a.AppointmentType, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func scanListedAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartTime, &a.EndTime, &a.Duration,
		&a.Status, &a.AppointmentType, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.DoctorName, &a.Specialization)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, start_time, end_time, duration,
			status, appointment_type, reason, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.StartTime, a.EndTime, a.Duration,
		a.Status, a.AppointmentType, a.Reason, a.Notes).Scan(&a.CreatedAt, &a.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: unknown patient or doctor", ErrInvalid)
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment a WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointment SET status=$2, reason=$3, notes=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Status, a.Reason, a.Notes).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointment SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptListCols+apptListFrom+`
		WHERE a.patient_id = $1 ORDER BY a.start_time DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectAppointments(rows)
	return items, total, err
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, statuses []string, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE a.doctor_id = $1`
	args := []any{doctorID}
	if len(statuses) > 0 {
		where += ` AND a.status = ANY($2)`
		args = append(args, statuses)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptListCols + apptListFrom + where +
		fmt.Sprintf(` ORDER BY a.start_time ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectAppointments(rows)
	return items, total, err
}

func (r *appointmentRepoPG) ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptListCols+apptListFrom+`
		WHERE a.doctor_id = $1 AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time ASC`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *appointmentRepoPG) ListUpcomingByPatient(ctx context.Context, patientID uuid.UUID, from time.Time, limit int) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptListCols+apptListFrom+`
		WHERE a.patient_id = $1 AND a.start_time >= $2 AND a.status IN ('SCHEDULED', 'CONFIRMED')
		ORDER BY a.start_time ASC LIMIT $3`, patientID, from, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanListedAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) DoctorPatients(ctx context.Context, doctorID uuid.UUID) ([]*PatientSummary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.full_name, COALESCE(p.email, ''), COALESCE(p.phone_number, ''),
			MAX(a.start_time), COUNT(*)
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE a.doctor_id = $1
		GROUP BY p.id, p.full_name, p.email, p.phone_number
		ORDER BY MAX(a.start_time) DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientSummary
	for rows.Next() {
		var s PatientSummary
		if err := rows.Scan(&s.PatientID, &s.FullName, &s.Email, &s.PhoneNumber, &s.LastVisit, &s.Appointments); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) DoctorStats(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) (*DoctorStats, error) {
	var s DoctorStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(DISTINCT patient_id),
			COUNT(*) FILTER (WHERE status = 'SCHEDULED'),
			COUNT(*) FILTER (WHERE start_time >= $2 AND start_time < $3)
		FROM appointment WHERE doctor_id = $1`,
		doctorID, dayStart, dayEnd).Scan(&s.TotalPatients, &s.PendingAppointments, &s.TodayAppointments)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *appointmentRepoPG) PatientStats(ctx context.Context, patientID uuid.UUID, now time.Time) (*PatientStats, error) {
	var s PatientStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status IN ('SCHEDULED', 'CONFIRMED') AND start_time >= $2)
		FROM appointment WHERE patient_id = $1`,
		patientID, now).Scan(&s.TotalAppointments, &s.CompletedAppointments, &s.UpcomingAppointments)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
