package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// PageGate redirects page requests according to the already resolved
// session: anonymous visitors of role areas go to /login, signed-in users
// are sent from the auth pages and /dashboard to their role's home, and a
// role area visited with the wrong role sends the user home.
func PageGate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := SessionFromContext(c.Request().Context())
			if target, ok := PageRedirect(c.Request().URL.Path, s); ok {
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}

// PageRedirect returns where a request for path must be redirected, if
// anywhere.
func PageRedirect(path string, s *Session) (string, bool) {
	doctorArea := inArea(path, "/doctor")
	patientArea := inArea(path, "/paciente")
	dashboard := inArea(path, "/dashboard")
	authPage := path == "/login" || path == "/register"

	if !s.Authenticated() {
		if doctorArea || patientArea || dashboard {
			return "/login", true
		}
		return "", false
	}

	role := s.User.Role
	switch {
	case authPage, dashboard:
		return role.Home(), true
	case doctorArea && !s.HasRole(RoleDoctor):
		return role.Home(), true
	case patientArea && !s.HasRole(RolePatient):
		return role.Home(), true
	}
	return "", false
}

func inArea(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
