package db

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func checkHealth(t *testing.T, conn DBTX) (*httptest.ResponseRecorder, Health) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)
	if err := HealthHandler(conn)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var h Health
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, h
}

func TestHealthHandler_Healthy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM _migrations`).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(1))

	rec, h := checkHealth(t, mock)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if h.Status != "healthy" || h.SchemaVersion != 1 {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	mock.ExpectQuery("FROM _migrations").WillReturnError(errors.New("connection refused"))

	rec, h := checkHealth(t, mock)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if h.Status != "unhealthy" {
		t.Errorf("expected unhealthy status, got %s", h.Status)
	}
	if h.Pool != nil {
		t.Errorf("expected no pool stats for a mock, got %+v", h.Pool)
	}
}
