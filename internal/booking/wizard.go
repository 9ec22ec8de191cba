package booking

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Step is a state of the booking wizard.
type Step int

const (
	StepSelectProvider Step = iota + 1
	StepSelectSchedule
	StepReview
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepSelectProvider:
		return "select_provider"
	case StepSelectSchedule:
		return "select_schedule"
	case StepReview:
		return "review"
	case StepConfirmed:
		return "confirmed"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// MinReasonLength is the shortest accepted reason for consultation, in characters.
const MinReasonLength = 5

var (
	ErrWizardClosed       = errors.New("booking: appointment already confirmed")
	ErrSubmissionInFlight = errors.New("booking: submission in progress")
	ErrNotAtReview        = errors.New("booking: appointments are submitted from the review step")
	ErrFirstStep          = errors.New("booking: already at the first step")
	ErrWrongStep          = errors.New("booking: field not editable at this step")
)

// ValidationError lists the fields blocking a step, keyed by field name.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("booking: %s incomplete: %s", e.Step, strings.Join(parts, "; "))
}

func invalid(step Step, field, msg string) *ValidationError {
	return &ValidationError{Step: step, Fields: map[string]string{field: msg}}
}

// Draft is the in-progress booking collected by one wizard.
type Draft struct {
	SpecialtyID string
	DoctorID    string
	Date        time.Time
	Slot        string
	Reason      string
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithClock overrides the clock used to reject past dates.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) { w.now = now }
}

// Wizard is the booking state machine. It moves through SelectProvider,
// SelectSchedule and Review, and reaches Confirmed only through a successful
// Submit. Confirmed is terminal. A Wizard is safe for concurrent use; while
// a submission is in flight every mutating call fails with
// ErrSubmissionInFlight.
type Wizard struct {
	mu        sync.Mutex
	patientID string
	doctors   []Doctor
	submitter Submitter
	now       func() time.Time

	step        Step
	draft       Draft
	submitting  bool
	notice      string
	appointment *Appointment
}

// NewWizard starts a wizard for patientID over the given doctor listing.
func NewWizard(patientID string, doctors []Doctor, submitter Submitter, opts ...Option) *Wizard {
	w := &Wizard{
		patientID: patientID,
		doctors:   doctors,
		submitter: submitter,
		now:       time.Now,
		step:      StepSelectProvider,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Notice returns the pending submission error message, or "".
func (w *Wizard) Notice() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notice
}

func (w *Wizard) DismissNotice() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notice = ""
}

// Appointment returns the confirmed appointment, or nil before confirmation.
func (w *Wizard) Appointment() *Appointment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appointment
}

// Doctors lists the doctors of the selected specialty.
func (w *Wizard) Doctors() []Doctor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return DoctorsForSpecialty(w.doctors, w.draft.SpecialtyID)
}

// SelectedDoctor returns the chosen doctor, or nil.
func (w *Wizard) SelectedDoctor() *Doctor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedDoctor()
}

// DateSelectable applies the availability filter for the chosen doctor.
func (w *Wizard) DateSelectable(date time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return DateSelectable(w.selectedDoctor(), date, w.now())
}

// Slots yields the slots of the chosen doctor on the chosen date.
func (w *Wizard) Slots() iter.Seq[string] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slots()
}

// SelectSpecialty sets the specialty. Choosing a different specialty clears
// the doctor, along with any date or slot the doctor no longer allows.
func (w *Wizard) SelectSpecialty(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepSelectProvider); err != nil {
		return err
	}
	if _, ok := SpecialtyByID(id); !ok {
		return invalid(StepSelectProvider, "specialty", "Especialidad desconocida")
	}
	if id != w.draft.SpecialtyID {
		w.draft.SpecialtyID = id
		w.draft.DoctorID = ""
		w.reconcileSchedule()
	}
	return nil
}

// SelectDoctor sets the doctor, who must practice the selected specialty.
func (w *Wizard) SelectDoctor(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepSelectProvider); err != nil {
		return err
	}
	d := w.findDoctor(id)
	if d == nil || !d.InSpecialty(w.draft.SpecialtyID) {
		return invalid(StepSelectProvider, "doctorId", "Selecciona un médico de la especialidad")
	}
	if id != w.draft.DoctorID {
		w.draft.DoctorID = id
		w.reconcileSchedule()
	}
	return nil
}

func (w *Wizard) SetReason(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepSelectProvider); err != nil {
		return err
	}
	w.draft.Reason = reason
	return nil
}

// SelectDate sets the appointment date, truncated to its calendar day. Dates
// the availability filter rejects are refused.
func (w *Wizard) SelectDate(date time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepSelectSchedule); err != nil {
		return err
	}
	if !DateSelectable(w.selectedDoctor(), date, w.now()) {
		return invalid(StepSelectSchedule, "date", "El médico no atiende en esa fecha")
	}
	y, m, d := date.Date()
	w.draft.Date = time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return nil
}

// SelectSlot sets the time slot, which must be offered for the chosen date.
func (w *Wizard) SelectSlot(label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepSelectSchedule); err != nil {
		return err
	}
	if !HasSlot(w.slots(), label) {
		return invalid(StepSelectSchedule, "timeSlot", "Horario no disponible")
	}
	w.draft.Slot = label
	return nil
}

// Next advances one step when the current step is complete. Review only
// advances through Submit.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	switch w.step {
	case StepSelectProvider:
		if verr := w.validateProvider(); verr != nil {
			return verr
		}
		w.step = StepSelectSchedule
	case StepSelectSchedule:
		if verr := w.validateSchedule(); verr != nil {
			return verr
		}
		w.step = StepReview
	default:
		return ErrNotAtReview
	}
	return nil
}

// Back returns to the previous step. Entered data is kept.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	if w.step == StepSelectProvider {
		return ErrFirstStep
	}
	w.step--
	return nil
}

// Submit sends the draft once. Success confirms the wizard; failure keeps it
// at Review with SubmissionFailedMessage as notice, ready to submit again.
// The returned error wraps ErrSubmissionFailed.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if err := w.mutable(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.step != StepReview {
		w.mu.Unlock()
		return ErrNotAtReview
	}
	req, err := NewCreateRequest(w.patientID, w.draft)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.submitting = true
	w.notice = ""
	w.mu.Unlock()

	appt, err := w.submitter.CreateAppointment(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.notice = SubmissionFailedMessage
		if !errors.Is(err, ErrSubmissionFailed) {
			err = fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
		}
		return err
	}
	if appt == nil {
		appt = req.echo()
	}
	w.appointment = appt
	w.step = StepConfirmed
	return nil
}

func (w *Wizard) mutable() error {
	if w.step == StepConfirmed {
		return ErrWizardClosed
	}
	if w.submitting {
		return ErrSubmissionInFlight
	}
	return nil
}

func (w *Wizard) editable(step Step) error {
	if err := w.mutable(); err != nil {
		return err
	}
	if w.step != step {
		return ErrWrongStep
	}
	return nil
}

func (w *Wizard) validateProvider() *ValidationError {
	fields := map[string]string{}
	if w.draft.SpecialtyID == "" {
		fields["specialty"] = "Selecciona una especialidad"
	}
	if w.draft.DoctorID == "" {
		fields["doctorId"] = "Selecciona un médico"
	}
	if utf8.RuneCountInString(strings.TrimSpace(w.draft.Reason)) < MinReasonLength {
		fields["reason"] = fmt.Sprintf("El motivo debe tener al menos %d caracteres", MinReasonLength)
	}
	if len(fields) > 0 {
		return &ValidationError{Step: StepSelectProvider, Fields: fields}
	}
	return nil
}

func (w *Wizard) validateSchedule() *ValidationError {
	fields := map[string]string{}
	if w.draft.Date.IsZero() {
		fields["date"] = "Selecciona una fecha"
	}
	if w.draft.Slot == "" {
		fields["timeSlot"] = "Selecciona un horario"
	}
	if len(fields) > 0 {
		return &ValidationError{Step: StepSelectSchedule, Fields: fields}
	}
	return nil
}

// reconcileSchedule drops a date or slot the current doctor does not offer.
func (w *Wizard) reconcileSchedule() {
	doc := w.selectedDoctor()
	if !w.draft.Date.IsZero() && doc != nil && !DateSelectable(doc, w.draft.Date, w.now()) {
		w.draft.Date = time.Time{}
	}
	if w.draft.Slot != "" && !HasSlot(w.slots(), w.draft.Slot) {
		w.draft.Slot = ""
	}
}

func (w *Wizard) selectedDoctor() *Doctor {
	return w.findDoctor(w.draft.DoctorID)
}

func (w *Wizard) findDoctor(id string) *Doctor {
	if id == "" {
		return nil
	}
	for i := range w.doctors {
		if w.doctors[i].ID == id {
			d := w.doctors[i]
			return &d
		}
	}
	return nil
}

func (w *Wizard) slots() iter.Seq[string] {
	doc := w.selectedDoctor()
	if doc == nil {
		return GenerateSlots("", "", time.Time{})
	}
	return DoctorSlots(*doc, w.draft.Date)
}
