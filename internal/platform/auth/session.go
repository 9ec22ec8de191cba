package auth

import (
	"context"
	"strings"
	"time"
)

// Role is the account role carried by a session.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

// NormalizeRole maps the role spellings issued for citamed accounts onto
// Role values. Accounts without a role are patients.
func NormalizeRole(s string) Role {
	r := strings.ToUpper(strings.TrimSpace(s))
	switch r {
	case "", "PATIENT", "PACIENTE":
		return RolePatient
	case "DOCTOR", "DR":
		return RoleDoctor
	case "ADMIN":
		return RoleAdmin
	}
	return Role(r)
}

// Home is the landing page of the role.
func (r Role) Home() string {
	switch r {
	case RoleDoctor:
		return "/doctor"
	case RolePatient:
		return "/paciente"
	}
	return "/"
}

// User is the signed-in account behind a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`

	// TokenID and ExpiresAt identify the session token, when there is one.
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// SessionState is the lifecycle of a request's session lookup.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateLoading
	StateResolved
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResolved:
		return "resolved"
	}
	return "uninitialized"
}

// Session is the result of the per-request session lookup. A resolved
// session with a nil User is an anonymous request.
type Session struct {
	State SessionState
	User  *User
}

// Authenticated reports whether the session resolved to a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == StateResolved && s.User != nil
}

// HasRole reports whether the session's user holds one of roles. Admins hold
// every role.
func (s *Session) HasRole(roles ...Role) bool {
	if !s.Authenticated() {
		return false
	}
	for _, r := range roles {
		if s.User.Role == r || s.User.Role == RoleAdmin {
			return true
		}
	}
	return false
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session stored in ctx, or an uninitialized
// session when the lookup has not run.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{State: StateUninitialized}
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *User {
	s := SessionFromContext(ctx)
	if !s.Authenticated() {
		return nil
	}
	return s.User
}
