package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Contact is an email recipient.
type Contact struct {
	Name  string
	Email string
}

// BookedAppointment is what the confirmation email needs to know about a
// freshly created appointment.
type BookedAppointment struct {
	DoctorName string
	StartTime  time.Time
	Reason     string
}

// Outcome records the result of one delivery attempt.
type Outcome interface {
	EmailSent(ok bool)
}

// AppointmentMailer renders and sends booking confirmations.
type AppointmentMailer struct {
	sender    EmailSender
	templates *TemplateEngine
	outcome   Outcome
	loc       *time.Location
	logger    zerolog.Logger
}

func NewAppointmentMailer(sender EmailSender, outcome Outcome, logger zerolog.Logger) *AppointmentMailer {
	return &AppointmentMailer{
		sender:    sender,
		templates: NewTemplateEngine(),
		outcome:   outcome,
		loc:       time.Local,
		logger:    logger,
	}
}

// In sets the location dates and times are rendered in.
func (m *AppointmentMailer) In(loc *time.Location) *AppointmentMailer {
	m.loc = loc
	return m
}

// AppointmentBooked sends the Spanish confirmation email. A contact without
// an address is skipped.
func (m *AppointmentMailer) AppointmentBooked(ctx context.Context, to Contact, appt BookedAppointment) error {
	if to.Email == "" {
		m.logger.Debug().Msg("confirmation email skipped: no recipient address")
		return nil
	}

	start := appt.StartTime.In(m.loc)
	reason := appt.Reason
	if reason == "" {
		reason = "Consulta general"
	}
	subject, body, err := m.templates.Render(TemplateAppointmentBooked, map[string]string{
		"patient_name": to.Name,
		"doctor_name":  appt.DoctorName,
		"date":         start.Format("02/01/2006"),
		"time":         start.Format("15:04"),
		"reason":       reason,
	})
	if err != nil {
		return err
	}

	err = m.sender.Send(ctx, EmailMessage{To: to.Email, ToName: to.Name, Subject: subject, Body: body})
	if m.outcome != nil {
		m.outcome.EmailSent(err == nil)
	}
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}
