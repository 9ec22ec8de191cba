package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/citamed/citamed/internal/booking"
	"github.com/citamed/citamed/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	signedIn := api.Group("", auth.RequireSession())
	signedIn.POST("/profile/provision", h.Provision)
	signedIn.GET("/doctors", h.ListDoctors)
	signedIn.GET("/doctors/:id/slots", h.DoctorSlots)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.GET("/patients/me", h.GetMyPatient)
	patients.PATCH("/patients/me", h.UpdateMyPatient)

	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.GET("/doctors/me", h.GetMyDoctor)
	doctors.PUT("/doctors/me/availability", h.UpdateMyAvailability)
}

func (h *Handler) Provision(c echo.Context) error {
	user := auth.UserFromContext(c.Request().Context())
	p, err := h.svc.ProvisionProfile(c.Request().Context(), user)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetMyPatient(c echo.Context) error {
	user := auth.UserFromContext(c.Request().Context())
	p, err := h.svc.PatientByUser(c.Request().Context(), user.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateMyPatient(c echo.Context) error {
	var u PatientUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user := auth.UserFromContext(c.Request().Context())
	p, err := h.svc.UpdatePatientProfile(c.Request().Context(), user.ID, u)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListDoctors returns the booking listing of active doctors, optionally
// filtered with ?specialty=.
func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListActiveDoctors(c.Request().Context(), c.QueryParam("specialty"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, BookingDoctors(doctors))
}

func (h *Handler) GetMyDoctor(c echo.Context) error {
	user := auth.UserFromContext(c.Request().Context())
	d, err := h.svc.DoctorByUser(c.Request().Context(), user.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateMyAvailability(c echo.Context) error {
	var u AvailabilityUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user := auth.UserFromContext(c.Request().Context())
	d, err := h.svc.UpdateDoctorAvailability(c.Request().Context(), user.ID, u)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type slotsResponse struct {
	DoctorID string   `json:"doctorId"`
	Date     string   `json:"date"`
	Weekday  string   `json:"weekday"`
	Slots    []string `json:"slots"`
}

func (h *Handler) DoctorSlots(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	date, err := time.ParseInLocation(time.DateOnly, c.QueryParam("date"), h.svc.Location())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	slots, err := h.svc.DoctorSlots(c.Request().Context(), id, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, slotsResponse{
		DoctorID: id.String(),
		Date:     date.Format(time.DateOnly),
		Weekday:  booking.WeekdayName(date.Weekday()),
		Slots:    slots,
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
