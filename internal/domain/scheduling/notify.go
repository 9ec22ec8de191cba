package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/citamed/citamed/internal/platform/notify"
)

// Contacts looks up who a confirmation is addressed to.
type Contacts interface {
	PatientContact(ctx context.Context, patientID uuid.UUID) (name, email string, err error)
	DoctorName(ctx context.Context, doctorID uuid.UUID) (string, error)
}

// MailNotifier sends the booking confirmation email.
type MailNotifier struct {
	mailer   *notify.AppointmentMailer
	contacts Contacts
}

func NewMailNotifier(mailer *notify.AppointmentMailer, contacts Contacts) *MailNotifier {
	return &MailNotifier{mailer: mailer, contacts: contacts}
}

func (n *MailNotifier) AppointmentBooked(ctx context.Context, a *Appointment) error {
	name, email, err := n.contacts.PatientContact(ctx, a.PatientID)
	if err != nil {
		return fmt.Errorf("patient contact: %w", err)
	}
	doctor, err := n.contacts.DoctorName(ctx, a.DoctorID)
	if err != nil {
		return fmt.Errorf("doctor name: %w", err)
	}

	appt := notify.BookedAppointment{DoctorName: doctor, StartTime: a.StartTime}
	if a.Reason != nil {
		appt.Reason = *a.Reason
	}
	return n.mailer.AppointmentBooked(ctx, notify.Contact{Name: name, Email: email}, appt)
}
