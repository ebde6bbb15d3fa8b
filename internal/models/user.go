package models

import "time"

// Role controls access to operator-only endpoints
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User is an operator or viewer account of the dashboard
type User struct {
	ID               int       `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Role             Role      `json:"role"`
	IsActive         bool      `json:"is_active"`
	ActiveIntervalID *int      `json:"active_interval_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the user record is complete
func (u *User) Validate() bool {
	if u.Username == "" || u.Email == "" {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleUser
}

// IsAdmin reports whether the user holds the operator role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
