package identity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/citamed/citamed/internal/booking"
	"github.com/citamed/citamed/internal/platform/auth"
	"github.com/citamed/citamed/internal/platform/db"
)

var (
	ErrNotFound = errors.New("profile not found")
	ErrConflict = errors.New("profile already exists")
	ErrInvalid  = errors.New("invalid profile")
)

type Service struct {
	db       db.TxBeginner
	patients PatientRepository
	doctors  DoctorRepository
	now      func() time.Time
}

func NewService(conn db.TxBeginner, patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{db: conn, patients: patients, doctors: doctors, now: time.Now}
}

// Location is where calendar dates are interpreted.
func (s *Service) Location() *time.Location {
	return s.now().Location()
}

// ProvisionProfile creates the patient or doctor profile of a new account.
// Calling it again for the same account returns the existing profile.
func (s *Service) ProvisionProfile(ctx context.Context, user *auth.User) (*Profile, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalid)
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = user.Email
	}

	switch user.Role {
	case auth.RolePatient:
		p, err := s.patients.GetByUserID(ctx, user.ID)
		if errors.Is(err, ErrNotFound) {
			p = &Patient{UserID: user.ID, FullName: name}
			if user.Email != "" {
				email := user.Email
				p.Email = &email
			}
			err = s.patients.Create(ctx, p)
			if errors.Is(err, ErrConflict) {
				p, err = s.patients.GetByUserID(ctx, user.ID)
			}
		}
		if err != nil {
			return nil, err
		}
		return &Profile{Role: string(user.Role), Patient: p}, nil

	case auth.RoleDoctor:
		d, err := s.doctors.GetByUserID(ctx, user.ID)
		if errors.Is(err, ErrNotFound) {
			d = &Doctor{
				UserID:        user.ID,
				FullName:      name,
				AvailableDays: slices.Clone(DefaultAvailableDays),
				StartTime:     DefaultStartTime,
				EndTime:       DefaultEndTime,
				IsActive:      true,
			}
			err = s.doctors.Create(ctx, d)
			if errors.Is(err, ErrConflict) {
				d, err = s.doctors.GetByUserID(ctx, user.ID)
			}
		}
		if err != nil {
			return nil, err
		}
		return &Profile{Role: string(user.Role), Doctor: d}, nil
	}
	return nil, fmt.Errorf("%w: no profile for role %s", ErrInvalid, user.Role)
}

func (s *Service) PatientByUser(ctx context.Context, userID string) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *Service) DoctorByUser(ctx context.Context, userID string) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// UpdatePatientProfile applies u to the account's patient profile.
func (s *Service) UpdatePatientProfile(ctx context.Context, userID string, u PatientUpdate) (*Patient, error) {
	var out *Patient
	err := db.WithTx(ctx, s.db, func(ctx context.Context) error {
		p, err := s.patients.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.applyPatientUpdate(p, u); err != nil {
			return err
		}
		if err := s.patients.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) applyPatientUpdate(p *Patient, u PatientUpdate) error {
	if u.FullName != nil {
		name := strings.TrimSpace(*u.FullName)
		if name == "" {
			return fmt.Errorf("%w: fullName cannot be empty", ErrInvalid)
		}
		p.FullName = name
	}
	if u.DateOfBirth != nil {
		if *u.DateOfBirth == "" {
			p.DateOfBirth = nil
		} else {
			dob, err := time.Parse(time.DateOnly, *u.DateOfBirth)
			if err != nil {
				return fmt.Errorf("%w: dateOfBirth must be YYYY-MM-DD", ErrInvalid)
			}
			if dob.After(s.now()) {
				return fmt.Errorf("%w: dateOfBirth is in the future", ErrInvalid)
			}
			p.DateOfBirth = &dob
		}
	}
	if u.Height != nil && *u.Height < 0 {
		return fmt.Errorf("%w: height must be positive", ErrInvalid)
	}
	if u.Weight != nil && *u.Weight < 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalid)
	}

	set := func(dst **string, v *string) {
		if v != nil {
			*dst = blankToNil(*v)
		}
	}
	set(&p.Email, u.Email)
	set(&p.PhoneNumber, u.PhoneNumber)
	set(&p.Gender, u.Gender)
	set(&p.Address, u.Address)
	set(&p.City, u.City)
	set(&p.State, u.State)
	set(&p.ZipCode, u.ZipCode)
	set(&p.Country, u.Country)
	set(&p.BloodType, u.BloodType)
	set(&p.Allergies, u.Allergies)
	set(&p.MedicalHistory, u.MedicalHistory)
	if u.Height != nil {
		p.Height = u.Height
	}
	if u.Weight != nil {
		p.Weight = u.Weight
	}
	if ec := u.EmergencyContact; ec != nil {
		set(&p.EmergencyContact.Name, ec.Name)
		set(&p.EmergencyContact.Phone, ec.Phone)
		set(&p.EmergencyContact.Relation, ec.Relation)
	}
	if in := u.Insurance; in != nil {
		set(&p.Insurance.Primary, in.Primary)
		set(&p.Insurance.PolicyNumber, in.PolicyNumber)
		set(&p.Insurance.GroupNumber, in.GroupNumber)
	}
	return nil
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ListActiveDoctors lists doctors accepting appointments, optionally limited
// to one specialty of the catalog.
func (s *Service) ListActiveDoctors(ctx context.Context, specialty string) ([]*Doctor, error) {
	if specialty != "" {
		if _, ok := booking.SpecialtyByID(specialty); !ok {
			return nil, fmt.Errorf("%w: unknown specialty %s", ErrInvalid, specialty)
		}
	}
	doctors, err := s.doctors.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if specialty == "" {
		return doctors, nil
	}
	var out []*Doctor
	for _, d := range doctors {
		if d.Booking().InSpecialty(specialty) {
			out = append(out, d)
		}
	}
	return out, nil
}

// UpdateDoctorAvailability replaces the working days and hours of the
// account's doctor profile. Days are Spanish weekday names; hours are HH:MM
// with start before end.
func (s *Service) UpdateDoctorAvailability(ctx context.Context, userID string, u AvailabilityUpdate) (*Doctor, error) {
	days, err := normalizeDays(u.AvailableDays)
	if err != nil {
		return nil, err
	}
	start, errStart := time.Parse("15:04", u.StartTime)
	end, errEnd := time.Parse("15:04", u.EndTime)
	if errStart != nil || errEnd != nil {
		return nil, fmt.Errorf("%w: startTime and endTime must be HH:MM", ErrInvalid)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: startTime must be before endTime", ErrInvalid)
	}
	if u.Specialization != nil && *u.Specialization != "" {
		if _, ok := booking.SpecialtyByID(*u.Specialization); !ok {
			return nil, fmt.Errorf("%w: unknown specialty %s", ErrInvalid, *u.Specialization)
		}
	}

	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.AvailableDays = days
	d.StartTime = start.Format("15:04")
	d.EndTime = end.Format("15:04")
	if u.Specialization != nil {
		d.Specialization = blankToNil(*u.Specialization)
	}
	if err := s.doctors.UpdateAvailability(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// normalizeDays validates and de-duplicates day names, ordered Monday first.
func normalizeDays(days []string) ([]string, error) {
	order := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	for _, d := range days {
		if !booking.IsWeekdayName(d) {
			return nil, fmt.Errorf("%w: unknown day %q", ErrInvalid, d)
		}
	}
	out := []string{}
	for _, wd := range order {
		if name := booking.WeekdayName(wd); slices.Contains(days, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// DoctorSlots lists the slot labels the doctor offers on date. A date the
// doctor does not work, or a past one, has no slots.
func (s *Service) DoctorSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	bd := d.Booking()
	if !d.IsActive || !booking.DateSelectable(&bd, date, s.now()) {
		return []string{}, nil
	}
	slots := slices.Collect(booking.DoctorSlots(bd, date))
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// -- scheduling directory --

func (s *Service) PatientIDForUser(ctx context.Context, userID string) (uuid.UUID, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *Service) DoctorIDForUser(ctx context.Context, userID string) (uuid.UUID, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return d.ID, nil
}

func (s *Service) PatientContact(ctx context.Context, patientID uuid.UUID) (string, string, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return "", "", err
	}
	email := ""
	if p.Email != nil {
		email = *p.Email
	}
	return p.FullName, email, nil
}

func (s *Service) DoctorName(ctx context.Context, doctorID uuid.UUID) (string, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return "", err
	}
	return d.FullName, nil
}
