package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DefaultRevocationTTL bounds the revocation of tokens that carry no expiry.
const DefaultRevocationTTL = 24 * time.Hour

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user,omitempty"`
	Home          string `json:"home,omitempty"`
}

// RegisterSessionRoutes exposes the resolved session and sign-out.
func RegisterSessionRoutes(g *echo.Group, store Revocations, cookieName string) {
	g.GET("/session", handleGetSession)
	g.POST("/session/sign-out", handleSignOut(store, cookieName), RequireSession())
}

func handleGetSession(c echo.Context) error {
	user := UserFromContext(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusOK, sessionResponse{})
	}
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: true, User: user, Home: user.Role.Home()})
}

// handleSignOut revokes the current session token and clears the session
// cookie. Sessions without a token ID only get the cookie cleared.
func handleSignOut(store Revocations, cookieName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := UserFromContext(c.Request().Context())
		if store != nil && user.TokenID != "" {
			exp := user.ExpiresAt
			if exp.IsZero() {
				exp = time.Now().Add(DefaultRevocationTTL)
			}
			if err := store.Revoke(c.Request().Context(), user.TokenID, exp); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "sign-out failed").SetInternal(err)
			}
		}
		if cookieName != "" {
			c.SetCookie(&http.Cookie{
				Name:     cookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
				Secure:   true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		return c.NoContent(http.StatusNoContent)
	}
}
