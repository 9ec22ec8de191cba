package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    []CreateAppointmentRequest
	err      error
	release  chan struct{}
	started  chan struct{}
	response *Appointment
}

func (f *fakeSubmitter) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	return &Appointment{ID: "appt-1", PatientID: req.PatientID, DoctorID: req.DoctorID, StartTime: req.StartTime, EndTime: req.EndTime, Status: "SCHEDULED"}, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testDoctors() []Doctor {
	return []Doctor{
		{ID: "d1", FullName: "Dra. Ana Ruiz", Specialization: "Cardiologia", AvailableDays: []string{"Lunes", "Miércoles"}, StartTime: "09:00", EndTime: "17:00"},
		{ID: "d2", FullName: "Dr. Luis Paz", Specialization: "cardiologia", AvailableDays: []string{"Martes"}, StartTime: "14:00", EndTime: "16:00"},
		{ID: "d3", FullName: "Dra. Eva Sol", Specialization: "pediatria", AvailableDays: []string{"Lunes"}, StartTime: "08:00", EndTime: "12:00"},
	}
}

func newTestWizard(sub Submitter) *Wizard {
	return NewWizard("p1", testDoctors(), sub, WithClock(func() time.Time { return friday }))
}

// toReview fills the wizard with a complete draft: d1 on Monday 2026-10-19 at 10:00.
func toReview(t *testing.T, w *Wizard) {
	t.Helper()
	mustOK(t, w.SelectSpecialty("cardiologia"))
	mustOK(t, w.SelectDoctor("d1"))
	mustOK(t, w.SetReason("Dolor de pecho"))
	mustOK(t, w.Next())
	mustOK(t, w.SelectDate(monday))
	mustOK(t, w.SelectSlot("10:00"))
	mustOK(t, w.Next())
	if w.Step() != StepReview {
		t.Fatalf("expected review step, got %s", w.Step())
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Fields
}

func TestWizard_StartsAtSelectProvider(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	if w.Step() != StepSelectProvider {
		t.Errorf("expected select_provider, got %s", w.Step())
	}
}

func TestWizard_ProviderStepBlocked(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	mustOK(t, w.SelectSpecialty("cardiologia"))
	mustOK(t, w.SetReason("short"))

	fields := validationFields(t, w.Next())
	if _, ok := fields["doctorId"]; !ok {
		t.Errorf("expected doctorId error, got %v", fields)
	}
	if w.Step() != StepSelectProvider {
		t.Errorf("expected to stay at select_provider, got %s", w.Step())
	}
}

func TestWizard_ReasonTooShort(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	mustOK(t, w.SelectSpecialty("cardiologia"))
	mustOK(t, w.SelectDoctor("d1"))
	mustOK(t, w.SetReason("dolo"))

	fields := validationFields(t, w.Next())
	if _, ok := fields["reason"]; !ok || len(fields) != 1 {
		t.Errorf("expected only a reason error, got %v", fields)
	}

	mustOK(t, w.SetReason("dolor"))
	mustOK(t, w.Next())
	if w.Step() != StepSelectSchedule {
		t.Errorf("expected select_schedule, got %s", w.Step())
	}
}

func TestWizard_ChangingSpecialtyClearsDoctor(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	mustOK(t, w.SelectSpecialty("cardiologia"))
	mustOK(t, w.SelectDoctor("d1"))
	mustOK(t, w.SelectSpecialty("pediatria"))

	if got := w.Draft().DoctorID; got != "" {
		t.Errorf("expected doctor cleared, got %q", got)
	}

	mustOK(t, w.SelectSpecialty("pediatria"))
	mustOK(t, w.SelectDoctor("d3"))
	mustOK(t, w.SelectSpecialty("pediatria"))
	if got := w.Draft().DoctorID; got != "d3" {
		t.Errorf("reselecting the same specialty must keep the doctor, got %q", got)
	}
}

func TestWizard_DoctorMustMatchSpecialty(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	mustOK(t, w.SelectSpecialty("cardiologia"))
	if err := w.SelectDoctor("d3"); err == nil {
		t.Fatal("expected error selecting a pediatrician for cardiology")
	}
	if err := w.SelectDoctor("missing"); err == nil {
		t.Fatal("expected error for unknown doctor")
	}
	if got := len(w.Doctors()); got != 2 {
		t.Errorf("expected 2 cardiologists, got %d", got)
	}
}

func TestWizard_UnknownSpecialty(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	fields := validationFields(t, w.SelectSpecialty("astrologia"))
	if _, ok := fields["specialty"]; !ok {
		t.Errorf("expected specialty error, got %v", fields)
	}
}

func TestWizard_ScheduleStep(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	mustOK(t, w.SelectSpecialty("cardiologia"))
	mustOK(t, w.SelectDoctor("d1"))
	mustOK(t, w.SetReason("Control anual"))
	mustOK(t, w.Next())

	fields := validationFields(t, w.Next())
	if len(fields) != 2 {
		t.Errorf("expected date and slot errors, got %v", fields)
	}

	tuesday := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	if err := w.SelectDate(tuesday); err == nil {
		t.Error("expected tuesday to be rejected")
	}
	if err := w.SelectDate(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Error("expected past date to be rejected")
	}

	mustOK(t, w.SelectDate(monday.Add(15*time.Hour)))
	if !w.Draft().Date.Equal(monday) {
		t.Errorf("expected date truncated to day, got %s", w.Draft().Date)
	}
	if err := w.SelectSlot("17:00"); err == nil {
		t.Error("expected 17:00 to be rejected")
	}
	mustOK(t, w.SelectSlot("16:30"))
	mustOK(t, w.Next())
	if w.Step() != StepReview {
		t.Errorf("expected review, got %s", w.Step())
	}
}

func TestWizard_FieldsOnlyEditableInTheirStep(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	if err := w.SelectDate(monday); !errors.Is(err, ErrWrongStep) {
		t.Errorf("expected ErrWrongStep, got %v", err)
	}
	toReview(t, w)
	if err := w.SetReason("otro motivo"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("expected ErrWrongStep, got %v", err)
	}
}

func TestWizard_BackKeepsData(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	toReview(t, w)
	before := w.Draft()

	mustOK(t, w.Back())
	if w.Step() != StepSelectSchedule {
		t.Errorf("expected select_schedule, got %s", w.Step())
	}
	mustOK(t, w.Back())
	if w.Step() != StepSelectProvider {
		t.Errorf("expected select_provider, got %s", w.Step())
	}
	if err := w.Back(); !errors.Is(err, ErrFirstStep) {
		t.Errorf("expected ErrFirstStep, got %v", err)
	}
	if w.Draft() != before {
		t.Errorf("expected draft unchanged, got %+v", w.Draft())
	}
}

func TestWizard_ChangingDoctorDropsInvalidSchedule(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	toReview(t, w)
	mustOK(t, w.Back())
	mustOK(t, w.Back())

	mustOK(t, w.SelectDoctor("d2"))
	d := w.Draft()
	if !d.Date.IsZero() {
		t.Errorf("monday is not offered by d2, expected date cleared, got %s", d.Date)
	}
	if d.Slot != "" {
		t.Errorf("expected slot cleared, got %q", d.Slot)
	}
}

func TestWizard_ReviewOnlyAdvancesThroughSubmit(t *testing.T) {
	w := newTestWizard(&fakeSubmitter{})
	toReview(t, w)
	if err := w.Next(); !errors.Is(err, ErrNotAtReview) {
		t.Errorf("expected ErrNotAtReview, got %v", err)
	}
	if w.Step() != StepReview {
		t.Errorf("expected review, got %s", w.Step())
	}
}

func TestWizard_SubmitBeforeReview(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWizard(sub)
	if err := w.Submit(context.Background()); !errors.Is(err, ErrNotAtReview) {
		t.Errorf("expected ErrNotAtReview, got %v", err)
	}
	if sub.callCount() != 0 {
		t.Error("submitter must not be called")
	}
}

func TestWizard_SubmitSuccess(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWizard(sub)
	toReview(t, w)

	mustOK(t, w.Submit(context.Background()))
	if w.Step() != StepConfirmed {
		t.Fatalf("expected confirmed, got %s", w.Step())
	}
	if w.Appointment() == nil || w.Appointment().ID != "appt-1" {
		t.Errorf("expected confirmed appointment, got %+v", w.Appointment())
	}

	req := sub.calls[0]
	wantStart := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	if !req.StartTime.Equal(wantStart) {
		t.Errorf("expected start %s, got %s", wantStart, req.StartTime)
	}
	if req.EndTime.Sub(req.StartTime) != 30*time.Minute {
		t.Errorf("expected 30 minute appointment, got %s", req.EndTime.Sub(req.StartTime))
	}
	if req.AppointmentType != "ROUTINE_CHECKUP" || req.PatientID != "p1" || req.DoctorID != "d1" || req.Reason != "Dolor de pecho" {
		t.Errorf("unexpected request %+v", req)
	}
}

// emptySubmitter accepts every request without returning the created appointment.
type emptySubmitter struct{}

func (emptySubmitter) CreateAppointment(context.Context, CreateAppointmentRequest) (*Appointment, error) {
	return nil, nil
}

func TestWizard_SubmitWithoutAppointmentBody(t *testing.T) {
	w := newTestWizard(emptySubmitter{})
	toReview(t, w)

	mustOK(t, w.Submit(context.Background()))
	if w.Step() != StepConfirmed {
		t.Fatalf("expected confirmed, got %s", w.Step())
	}
	a := w.Appointment()
	if a == nil {
		t.Fatal("expected appointment echoed from the request")
	}
	wantStart := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	if a.PatientID != "p1" || a.DoctorID != "d1" || !a.StartTime.Equal(wantStart) || a.Reason != "Dolor de pecho" {
		t.Errorf("unexpected appointment %+v", a)
	}
}

func TestWizard_ConfirmedIsTerminal(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWizard(sub)
	toReview(t, w)
	mustOK(t, w.Submit(context.Background()))

	for name, err := range map[string]error{
		"back":      w.Back(),
		"next":      w.Next(),
		"submit":    w.Submit(context.Background()),
		"specialty": w.SelectSpecialty("pediatria"),
	} {
		if !errors.Is(err, ErrWizardClosed) {
			t.Errorf("%s: expected ErrWizardClosed, got %v", name, err)
		}
	}
	if sub.callCount() != 1 {
		t.Errorf("expected exactly one submission, got %d", sub.callCount())
	}
}

func TestWizard_SubmitFailureStaysAtReview(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("status 500")}
	w := newTestWizard(sub)
	toReview(t, w)

	err := w.Submit(context.Background())
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if w.Step() != StepReview {
		t.Errorf("expected review, got %s", w.Step())
	}
	if w.Notice() != SubmissionFailedMessage {
		t.Errorf("expected generic notice, got %q", w.Notice())
	}
	if w.Submitting() {
		t.Error("submit must be re-enabled after failure")
	}
	if sub.callCount() != 1 {
		t.Errorf("expected no automatic retry, got %d calls", sub.callCount())
	}

	w.DismissNotice()
	if w.Notice() != "" {
		t.Error("expected notice dismissed")
	}

	sub.err = nil
	mustOK(t, w.Submit(context.Background()))
	if w.Step() != StepConfirmed {
		t.Errorf("expected confirmed after resubmission, got %s", w.Step())
	}
}

func TestWizard_InFlightBlocksDuplicates(t *testing.T) {
	sub := &fakeSubmitter{release: make(chan struct{}), started: make(chan struct{}, 1)}
	w := newTestWizard(sub)
	toReview(t, w)

	done := make(chan error, 1)
	go func() { done <- w.Submit(context.Background()) }()
	<-sub.started

	if !w.Submitting() {
		t.Error("expected submission in flight")
	}
	if err := w.Submit(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("expected ErrSubmissionInFlight, got %v", err)
	}
	if err := w.Back(); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("expected back to be blocked, got %v", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.callCount() != 1 {
		t.Errorf("expected one submission, got %d", sub.callCount())
	}
}

func TestStep_String(t *testing.T) {
	if StepReview.String() != "review" || Step(9).String() != "step(9)" {
		t.Error("unexpected step names")
	}
}
