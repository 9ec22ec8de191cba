package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("citamed/booking")

// AppointmentTypeRoutineCheckup is the type every wizard booking is created with.
const AppointmentTypeRoutineCheckup = "ROUTINE_CHECKUP"

// SubmissionFailedMessage is the single notice shown for any failed submission.
const SubmissionFailedMessage = "Error al agendar la cita. Por favor intente de nuevo."

var (
	// ErrSubmissionFailed wraps every transport error and non-2xx response.
	ErrSubmissionFailed = errors.New("booking: appointment submission failed")
	// ErrNoPatientSession is returned when the booking page is not available
	// to the caller, i.e. it has no patient session or no patient profile.
	ErrNoPatientSession = errors.New("booking: no patient session")
)

// CreateAppointmentRequest is the body of POST /api/v1/appointments.
type CreateAppointmentRequest struct {
	PatientID       string    `json:"patientId"`
	DoctorID        string    `json:"doctorId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	Reason          string    `json:"reason"`
	AppointmentType string    `json:"appointmentType"`
}

// Appointment is the created appointment as returned by the API.
type Appointment struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patientId"`
	DoctorID        string    `json:"doctorId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	Status          string    `json:"status"`
	AppointmentType string    `json:"appointmentType"`
	Reason          string    `json:"reason"`
}

// Submitter creates appointments. Implementations make exactly one attempt.
type Submitter interface {
	CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error)
}

// NewCreateRequest builds the creation request for a completed draft. The
// appointment starts at the slot's time of day on the draft's date and lasts
// one SlotDuration.
func NewCreateRequest(patientID string, d Draft) (CreateAppointmentRequest, error) {
	if d.Date.IsZero() || d.Slot == "" {
		return CreateAppointmentRequest{}, fmt.Errorf("booking: draft has no date or slot")
	}
	start, err := SlotStart(d.Date, d.Slot)
	if err != nil {
		return CreateAppointmentRequest{}, fmt.Errorf("booking: %w", err)
	}
	return CreateAppointmentRequest{
		PatientID:       patientID,
		DoctorID:        d.DoctorID,
		StartTime:       start,
		EndTime:         start.Add(SlotDuration),
		Reason:          d.Reason,
		AppointmentType: AppointmentTypeRoutineCheckup,
	}, nil
}

// BookingContext is what the booking page supplies before the wizard starts.
type BookingContext struct {
	PatientID   string      `json:"patientId"`
	Doctors     []Doctor    `json:"doctors"`
	Specialties []Specialty `json:"specialties"`
}

// APIClient talks to the citamed HTTP API on behalf of a signed-in patient.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient returns a client for baseURL authenticating with a bearer
// token. A nil httpClient gets a 15 second timeout. Redirects are never
// followed: the page gate answers unauthenticated calls with one.
func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := *httpClient
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &c,
	}
}

// CreateAppointment posts req once. Any transport error or non-2xx status is
// reported as ErrSubmissionFailed.
func (c *APIClient) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.create_appointment")
	defer span.End()
	span.SetAttributes(
		attribute.String("citamed.doctor_id", req.DoctorID),
		attribute.String("citamed.start_time", req.StartTime.Format(time.RFC3339)),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrSubmissionFailed, err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/appointments", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: status %d", ErrSubmissionFailed, resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	appt := req.echo()
	// The appointment exists once the server answered 2xx; an unreadable body
	// only loses the server-assigned fields.
	_ = json.NewDecoder(resp.Body).Decode(appt)
	return appt, nil
}

// echo is the appointment as requested, before any server-assigned fields.
func (req CreateAppointmentRequest) echo() *Appointment {
	return &Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AppointmentType: req.AppointmentType,
		Reason:          req.Reason,
	}
}

// LoadBookingContext fetches the patient id and doctor listing the wizard
// starts from.
func (c *APIClient) LoadBookingContext(ctx context.Context) (*BookingContext, error) {
	resp, err := c.do(ctx, http.MethodGet, "/paciente/agendar", nil)
	if err != nil {
		return nil, fmt.Errorf("load booking context: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoPatientSession
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("load booking context: status %d", resp.StatusCode)
	}

	var bc BookingContext
	if err := json.NewDecoder(resp.Body).Decode(&bc); err != nil {
		return nil, fmt.Errorf("decode booking context: %w", err)
	}
	return &bc, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}
