package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/citamed/citamed/internal/booking"
	"github.com/citamed/citamed/internal/domain/clinical"
	"github.com/citamed/citamed/internal/domain/identity"
	"github.com/citamed/citamed/internal/domain/scheduling"
	"github.com/citamed/citamed/internal/platform/auth"
	"github.com/citamed/citamed/pkg/pagination"
)

type Profiles interface {
	PatientByUser(ctx context.Context, userID string) (*identity.Patient, error)
	DoctorByUser(ctx context.Context, userID string) (*identity.Doctor, error)
	ListActiveDoctors(ctx context.Context, specialty string) ([]*identity.Doctor, error)
}

type Appointments interface {
	DoctorDay(ctx context.Context, doctorID uuid.UUID) ([]*scheduling.Appointment, error)
	DoctorStats(ctx context.Context, doctorID uuid.UUID) (*scheduling.DoctorStats, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, statuses []string, limit, offset int) ([]*scheduling.Appointment, int, error)
	DoctorPatients(ctx context.Context, doctorID uuid.UUID) ([]*scheduling.PatientSummary, error)
	UpcomingForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*scheduling.Appointment, error)
	PatientStats(ctx context.Context, patientID uuid.UUID) (*scheduling.PatientStats, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*scheduling.Appointment, int, error)
}

type History interface {
	MedicalHistory(ctx context.Context, patientID uuid.UUID) (*clinical.History, error)
}

// Handler serves the page view models. Every route sits behind the page
// gate, so role areas only run for users of that role.
type Handler struct {
	profiles     Profiles
	appointments Appointments
	history      History
}

func NewHandler(profiles Profiles, appts Appointments, history History) *Handler {
	return &Handler{profiles: profiles, appointments: appts, history: history}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	gate := auth.PageGate()
	routes := map[string]echo.HandlerFunc{
		"/dashboard":          h.Dashboard,
		"/login":              h.Login,
		"/register":           h.Register,
		"/forbidden":          h.Forbidden,
		"/doctor":             h.DoctorHome,
		"/doctor/agenda":      h.DoctorAgenda,
		"/doctor/pacientes":   h.DoctorPatients,
		"/paciente":           h.PatientHome,
		"/paciente/citas":     h.PatientAppointments,
		"/paciente/agendar":   h.BookingPage,
		"/paciente/historial": h.PatientHistory,
		"/paciente/perfil":    h.PatientProfile,
	}
	for path, fn := range routes {
		e.GET(path, fn, gate)
	}
}

func render(c echo.Context, title string, data any) error {
	return c.JSON(http.StatusOK, Page{
		Title: title,
		User:  auth.UserFromContext(c.Request().Context()),
		Data:  data,
	})
}

// Dashboard sends the user to their role's home. The page gate normally
// answers first.
func (h *Handler) Dashboard(c echo.Context) error {
	user := auth.UserFromContext(c.Request().Context())
	if user == nil {
		return c.Redirect(http.StatusFound, "/login")
	}
	return c.Redirect(http.StatusFound, user.Role.Home())
}

func (h *Handler) Login(c echo.Context) error {
	return render(c, "Iniciar sesión", nil)
}

func (h *Handler) Register(c echo.Context) error {
	return render(c, "Crear cuenta", nil)
}

func (h *Handler) Forbidden(c echo.Context) error {
	home := "/"
	if user := auth.UserFromContext(c.Request().Context()); user != nil {
		home = user.Role.Home()
	}
	return c.JSON(http.StatusForbidden, Page{
		Title: "Acceso denegado",
		User:  auth.UserFromContext(c.Request().Context()),
		Data:  Notice{Message: "No tienes permiso para acceder a esta página.", Home: home},
	})
}

func (h *Handler) doctor(c echo.Context) (*identity.Doctor, error) {
	ctx := c.Request().Context()
	d, err := h.profiles.DoctorByUser(ctx, auth.UserFromContext(ctx).ID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "perfil de doctor no encontrado")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return d, nil
}

func (h *Handler) patient(c echo.Context) (*identity.Patient, error) {
	ctx := c.Request().Context()
	p, err := h.profiles.PatientByUser(ctx, auth.UserFromContext(ctx).ID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "perfil de paciente no encontrado")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return p, nil
}

func (h *Handler) DoctorHome(c echo.Context) error {
	d, err := h.doctor(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	stats, err := h.appointments.DoctorStats(ctx, d.ID)
	if err != nil {
		return internalError(err)
	}
	today, err := h.appointments.DoctorDay(ctx, d.ID)
	if err != nil {
		return internalError(err)
	}
	return render(c, "Panel del doctor", DoctorHome{Doctor: d, Stats: stats, Today: orEmpty(today)})
}

func (h *Handler) DoctorAgenda(c echo.Context) error {
	d, err := h.doctor(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.appointments.ListForDoctor(c.Request().Context(), d.ID, scheduling.AgendaStatuses, pg.Limit, pg.Offset)
	if err != nil {
		return internalError(err)
	}
	return render(c, "Agenda", pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DoctorPatients(c echo.Context) error {
	d, err := h.doctor(c)
	if err != nil {
		return err
	}
	patients, err := h.appointments.DoctorPatients(c.Request().Context(), d.ID)
	if err != nil {
		return internalError(err)
	}
	if patients == nil {
		patients = []*scheduling.PatientSummary{}
	}
	return render(c, "Mis pacientes", patients)
}

func (h *Handler) PatientHome(c echo.Context) error {
	p, err := h.patient(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	stats, err := h.appointments.PatientStats(ctx, p.ID)
	if err != nil {
		return internalError(err)
	}
	upcoming, err := h.appointments.UpcomingForPatient(ctx, p.ID, UpcomingLimit)
	if err != nil {
		return internalError(err)
	}
	return render(c, "Mi panel", PatientHome{Patient: p, Stats: stats, Upcoming: orEmpty(upcoming)})
}

func (h *Handler) PatientAppointments(c echo.Context) error {
	p, err := h.patient(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.appointments.ListForPatient(c.Request().Context(), p.ID, pg.Limit, pg.Offset)
	if err != nil {
		return internalError(err)
	}
	return render(c, "Mis citas", pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// BookingPage hosts the booking wizard. It answers with the booking context
// the wizard starts from, and sends users without a patient profile back to
// the patient home.
func (h *Handler) BookingPage(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.profiles.PatientByUser(ctx, auth.UserFromContext(ctx).ID)
	if errors.Is(err, identity.ErrNotFound) {
		return c.Redirect(http.StatusFound, "/paciente")
	}
	if err != nil {
		return internalError(err)
	}
	doctors, err := h.profiles.ListActiveDoctors(ctx, "")
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, booking.BookingContext{
		PatientID:   p.ID.String(),
		Doctors:     identity.BookingDoctors(doctors),
		Specialties: booking.Specialties,
	})
}

func (h *Handler) PatientHistory(c echo.Context) error {
	p, err := h.patient(c)
	if err != nil {
		return err
	}
	hist, err := h.history.MedicalHistory(c.Request().Context(), p.ID)
	if err != nil {
		return internalError(err)
	}
	return render(c, "Historial médico", PatientHistory{Patient: p, History: hist})
}

func (h *Handler) PatientProfile(c echo.Context) error {
	p, err := h.patient(c)
	if err != nil {
		return err
	}
	return render(c, "Mi perfil", p)
}

func orEmpty(items []*scheduling.Appointment) []*scheduling.Appointment {
	if items == nil {
		return []*scheduling.Appointment{}
	}
	return items
}

func internalError(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

