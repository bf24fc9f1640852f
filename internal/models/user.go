package models

import (
	"strings"
	"time"
)

// User roles.
const (
	UserRoleAdmin = "admin"
	UserRoleQA    = "qa"
	UserRoleUser  = "user"
)

// User is an account that can sign documents and approve records.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID       string
	Username string
	Name     string
	Email    string
	Role     string
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}

	return false
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks required fields on LoginRequest.
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		return NewValidationError("username", "is required")
	}

	if r.Password == "" {
		return NewValidationError("password", "is required")
	}

	return nil
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// AccessEvent is an operational access record (logins, exports, downloads).
// These are not audit-trail entries and are not hash chained.
type AccessEvent struct {
	Event     string         `json:"event"`
	UserID    string         `json:"userId,omitempty"`
	Username  string         `json:"username,omitempty"`
	ClientIP  string         `json:"clientIp,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Browser   string         `json:"browser,omitempty"`
	OS        string         `json:"os,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ClientMeta describes the HTTP client behind a request.
type ClientMeta struct {
	IP        string
	UserAgent string
}
