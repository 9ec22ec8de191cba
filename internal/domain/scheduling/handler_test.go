package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/citamed/citamed/internal/platform/auth"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func newContext(e *echo.Echo, method, body string, user *auth.User) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	req = req.WithContext(auth.WithSession(req.Context(), &auth.Session{State: auth.StateResolved, User: user}))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTP error %d, got %v", want, err)
	}
	if he.Code != want {
		t.Errorf("expected %d, got %d (%v)", want, he.Code, he.Message)
	}
}

func TestHandler_CreateAppointment(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patientId":"` + patientID.String() + `","doctorId":"` + doctorID.String() +
		`","startTime":"2026-10-19T09:00:00Z","endTime":"2026-10-19T09:30:00Z","reason":"dolor de cabeza","appointmentType":"ROUTINE_CHECKUP"}`
	c, rec := newContext(e, http.MethodPost, body, patientUser)

	if err := h.CreateAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusScheduled || got.Reason == nil || *got.Reason != "dolor de cabeza" {
		t.Errorf("unexpected appointment %+v", got)
	}
}

func TestHandler_CreateAppointment_MissingFields(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newContext(e, http.MethodPost, `{"doctorId":"`+doctorID.String()+`"}`, patientUser)
	assertHTTPStatus(t, h.CreateAppointment(c), http.StatusBadRequest)
}

func TestHandler_CreateAppointment_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newContext(e, http.MethodPost, `{"patientId":"nope"}`, patientUser)
	assertHTTPStatus(t, h.CreateAppointment(c), http.StatusBadRequest)
}

func TestHandler_CreateAppointment_ForOtherPatient(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patientId":"` + uuid.New().String() + `","doctorId":"` + doctorID.String() +
		`","startTime":"2026-10-19T09:00:00Z","endTime":"2026-10-19T09:30:00Z","appointmentType":"ROUTINE_CHECKUP"}`
	c, _ := newContext(e, http.MethodPost, body, patientUser)
	assertHTTPStatus(t, h.CreateAppointment(c), http.StatusForbidden)
}

func TestHandler_UpdateAppointment(t *testing.T) {
	h, env, e := newTestHandler()
	a := validAppointment()
	env.svc.CreateAppointment(context.Background(), patientUser, a)

	c, rec := newContext(e, http.MethodPatch, `{"status":"CONFIRMED"}`, doctorUser)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.UpdateAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if env.repo.appts[a.ID].Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", env.repo.appts[a.ID].Status)
	}
}

func TestHandler_UpdateAppointment_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newContext(e, http.MethodPatch, `{"status":"CONFIRMED"}`, doctorUser)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	assertHTTPStatus(t, h.UpdateAppointment(c), http.StatusNotFound)
}

func TestHandler_UpdateAppointment_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newContext(e, http.MethodPatch, `{}`, doctorUser)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	assertHTTPStatus(t, h.UpdateAppointment(c), http.StatusBadRequest)
}

func TestHandler_CancelAppointment(t *testing.T) {
	h, env, e := newTestHandler()
	a := validAppointment()
	env.svc.CreateAppointment(context.Background(), patientUser, a)

	c, rec := newContext(e, http.MethodPost, "", patientUser)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.CancelAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_CancelAppointment_NoProfile(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newContext(e, http.MethodPost, "", &auth.User{ID: "stranger", Role: auth.RolePatient})
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	assertHTTPStatus(t, h.CancelAppointment(c), http.StatusForbidden)
}

func TestHandler_ListMine(t *testing.T) {
	h, env, e := newTestHandler()
	env.svc.CreateAppointment(context.Background(), patientUser, validAppointment())

	for _, user := range []*auth.User{patientUser, doctorUser} {
		c, rec := newContext(e, http.MethodGet, "", user)
		if err := h.ListMine(c); err != nil {
			t.Fatalf("%s: unexpected error: %v", user.Role, err)
		}
		var resp struct {
			Total int `json:"total"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Total != 1 {
			t.Errorf("%s: expected total 1, got %d", user.Role, resp.Total)
		}
	}
}

func TestHandler_ListMine_Anonymous(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newContext(e, http.MethodGet, "", nil)
	assertHTTPStatus(t, h.ListMine(c), http.StatusUnauthorized)
}

func TestHandler_Routes_RoleGuards(t *testing.T) {
	h, _, e := newTestHandler()
	api := e.Group("/api/v1")
	h.RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/"+uuid.New().String(), strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithSession(req.Context(), &auth.Session{State: auth.StateResolved, User: patientUser}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for patient patching, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}
}
