package clinical

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/citamed/citamed/internal/domain/scheduling"
	"github.com/citamed/citamed/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	profiles scheduling.Directory
}

func NewHandler(svc *Service, profiles scheduling.Directory) *Handler {
	return &Handler{svc: svc, profiles: profiles}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.POST("/doctor/medical-records", h.CreateMedicalRecord)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.GET("/patient/medical-history", h.MedicalHistory)
}

func (h *Handler) CreateMedicalRecord(c echo.Context) error {
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	doctorID, err := h.profiles.DoctorIDForUser(ctx, auth.UserFromContext(ctx).ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	rec, err := h.svc.CreateMedicalRecord(ctx, doctorID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) MedicalHistory(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := h.profiles.PatientIDForUser(ctx, auth.UserFromContext(ctx).ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	hist, err := h.svc.MedicalHistory(ctx, patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, hist)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
