package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewCreateRequest(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	d := Draft{
		SpecialtyID: "cardiologia",
		DoctorID:    "d1",
		Date:        time.Date(2026, 10, 21, 0, 0, 0, 0, loc),
		Slot:        "11:30",
		Reason:      "Chequeo general",
	}
	req, err := NewCreateRequest("p1", d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 10, 21, 11, 30, 0, 0, loc)
	if !req.StartTime.Equal(want) {
		t.Errorf("expected start %s, got %s", want, req.StartTime)
	}
	if !req.EndTime.Equal(want.Add(30 * time.Minute)) {
		t.Errorf("expected end %s, got %s", want.Add(30*time.Minute), req.EndTime)
	}
	if req.AppointmentType != AppointmentTypeRoutineCheckup {
		t.Errorf("expected ROUTINE_CHECKUP, got %s", req.AppointmentType)
	}

	if _, err := NewCreateRequest("p1", Draft{DoctorID: "d1"}); err == nil {
		t.Error("expected error for incomplete draft")
	}
}

func TestAPIClient_CreateAppointment(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/appointments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"a-1","status":"SCHEDULED","patientId":"p1","doctorId":"d1"}`))
	}))
	defer srv.Close()

	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	client := NewAPIClient(srv.URL+"/", "tok", nil)
	appt, err := client.CreateAppointment(context.Background(), CreateAppointmentRequest{
		PatientID: "p1", DoctorID: "d1", StartTime: start, EndTime: start.Add(SlotDuration),
		Reason: "Dolor de cabeza", AppointmentType: AppointmentTypeRoutineCheckup,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.ID != "a-1" || appt.Status != "SCHEDULED" {
		t.Errorf("unexpected appointment %+v", appt)
	}
	if !appt.StartTime.Equal(start) {
		t.Errorf("expected start kept from request, got %s", appt.StartTime)
	}

	for _, key := range []string{"patientId", "doctorId", "startTime", "endTime", "reason", "appointmentType"} {
		if _, ok := got[key]; !ok {
			t.Errorf("expected %s in request body", key)
		}
	}
	if got["startTime"] != "2026-10-19T10:00:00Z" || got["endTime"] != "2026-10-19T10:30:00Z" {
		t.Errorf("unexpected times %v / %v", got["startTime"], got["endTime"])
	}
}

func TestAPIClient_CreateAppointmentFailures(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError, http.StatusFound} {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if status == http.StatusFound {
				http.Redirect(w, r, "/login", status)
				return
			}
			w.WriteHeader(status)
		}))

		_, err := NewAPIClient(srv.URL, "tok", nil).CreateAppointment(context.Background(), CreateAppointmentRequest{})
		srv.Close()
		if !errors.Is(err, ErrSubmissionFailed) {
			t.Errorf("status %d: expected ErrSubmissionFailed, got %v", status, err)
		}
		if calls != 1 {
			t.Errorf("status %d: expected a single attempt, got %d", status, calls)
		}
	}
}

func TestAPIClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewAPIClient(url, "", nil).CreateAppointment(context.Background(), CreateAppointmentRequest{})
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Errorf("expected ErrSubmissionFailed, got %v", err)
	}
}

func TestAPIClient_LoadBookingContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		_ = json.NewEncoder(w).Encode(BookingContext{
			PatientID:   "p1",
			Doctors:     testDoctors(),
			Specialties: Specialties,
		})
	}))
	defer srv.Close()

	bc, err := NewAPIClient(srv.URL, "tok", nil).LoadBookingContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bc.PatientID != "p1" || len(bc.Doctors) != 3 {
		t.Errorf("unexpected booking context %+v", bc)
	}

	_, err = NewAPIClient(srv.URL, "", nil).LoadBookingContext(context.Background())
	if !errors.Is(err, ErrNoPatientSession) {
		t.Errorf("expected ErrNoPatientSession, got %v", err)
	}
}

func TestAPIClient_LoadBookingContextWithoutPatient(t *testing.T) {
	for _, status := range []int{http.StatusFound, http.StatusUnauthorized, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status == http.StatusFound {
				http.Redirect(w, r, "/login", status)
				return
			}
			http.Error(w, "patient profile not found", status)
		}))

		_, err := NewAPIClient(srv.URL, "tok", nil).LoadBookingContext(context.Background())
		srv.Close()
		if !errors.Is(err, ErrNoPatientSession) {
			t.Errorf("status %d: expected ErrNoPatientSession, got %v", status, err)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := NewAPIClient(srv.URL, "tok", nil).LoadBookingContext(context.Background())
	if err == nil || errors.Is(err, ErrNoPatientSession) {
		t.Errorf("expected a plain status error for 500, got %v", err)
	}
}
