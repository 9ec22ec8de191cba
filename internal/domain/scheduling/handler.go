package scheduling

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/citamed/citamed/internal/booking"
	"github.com/citamed/citamed/internal/platform/auth"
	"github.com/citamed/citamed/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	signedIn := api.Group("", auth.RequireSession())
	signedIn.POST("/appointments", h.CreateAppointment)
	signedIn.GET("/appointments/mine", h.ListMine)

	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.PATCH("/appointments/:id", h.UpdateAppointment)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.POST("/appointments/:id/cancel", h.CancelAppointment)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req booking.CreateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID, err := optionalUUID(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patientId")
	}
	doctorID, err := optionalUUID(req.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctorId")
	}

	a := &Appointment{
		PatientID:       patientID,
		DoctorID:        doctorID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AppointmentType: req.AppointmentType,
	}
	if r := strings.TrimSpace(req.Reason); r != "" {
		a.Reason = &r
	}

	user := auth.UserFromContext(c.Request().Context())
	if err := h.svc.CreateAppointment(c.Request().Context(), user, a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Patch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	doctorID, err := h.svc.DoctorFor(ctx, auth.UserFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	a, err := h.svc.UpdateByDoctor(ctx, doctorID, id, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	patientID, err := h.svc.PatientFor(ctx, auth.UserFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	a, err := h.svc.CancelByPatient(ctx, patientID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// ListMine lists the caller's appointments: a doctor's agenda or a
// patient's bookings. Doctors may filter with ?status=A,B.
func (h *Handler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.UserFromContext(ctx)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	pg := pagination.FromContext(c)

	var (
		items []*Appointment
		total int
	)
	switch user.Role {
	case auth.RoleDoctor:
		doctorID, err := h.svc.DoctorFor(ctx, user)
		if err != nil {
			return httpError(err)
		}
		var statuses []string
		if raw := c.QueryParam("status"); raw != "" {
			statuses = strings.Split(strings.ToUpper(raw), ",")
		}
		items, total, err = h.svc.ListForDoctor(ctx, doctorID, statuses, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
	default:
		patientID, err := h.svc.PatientFor(ctx, user)
		if err != nil {
			return httpError(err)
		}
		items, total, err = h.svc.ListForPatient(ctx, patientID, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func optionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
