package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestPageRedirect(t *testing.T) {
	anon := &Session{State: StateResolved}
	patient := &Session{State: StateResolved, User: &User{ID: "p", Role: RolePatient}}
	doctor := &Session{State: StateResolved, User: &User{ID: "d", Role: RoleDoctor}}
	admin := &Session{State: StateResolved, User: &User{ID: "a", Role: RoleAdmin}}

	tests := []struct {
		name    string
		path    string
		session *Session
		want    string
	}{
		{"anonymous doctor area", "/doctor/agenda", anon, "/login"},
		{"anonymous patient area", "/paciente", anon, "/login"},
		{"anonymous dashboard", "/dashboard", anon, "/login"},
		{"anonymous login", "/login", anon, ""},
		{"anonymous public page", "/", anon, ""},
		{"patient on login", "/login", patient, "/paciente"},
		{"doctor on register", "/register", doctor, "/doctor"},
		{"doctor dashboard", "/dashboard", doctor, "/doctor"},
		{"patient dashboard", "/dashboard", patient, "/paciente"},
		{"patient in doctor area", "/doctor", patient, "/paciente"},
		{"doctor in patient area", "/paciente/agendar", doctor, "/doctor"},
		{"doctor in own area", "/doctor/pacientes", doctor, ""},
		{"patient in own area", "/paciente/citas", patient, ""},
		{"prefix lookalike", "/doctorado", anon, ""},
		{"admin anywhere", "/doctor", admin, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PageRedirect(tt.path, tt.session)
			if got != tt.want || ok != (tt.want != "") {
				t.Errorf("PageRedirect(%q) = %q, %v; want %q", tt.path, got, ok, tt.want)
			}
		})
	}
}

func TestPageGate_Redirects(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/doctor", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := PageGate()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected redirect to /login, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}
