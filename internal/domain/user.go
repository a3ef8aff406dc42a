package domain

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	DisplayName         string     `json:"display_name"`
	PasswordHash        string     `json:"-"`
	Role                string     `json:"role"`
	IsActive            bool       `json:"is_active"`
	MustChangePassword  bool       `json:"must_change_password"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Valid user roles
const (
	RoleAdmin    = "admin"
	RoleTeamLead = "team_lead"
	RoleMember   = "member"
)

var validRoles = map[string]bool{
	RoleAdmin:    true,
	RoleTeamLead: true,
	RoleMember:   true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

// Locked reports whether the account is locked out at the given instant.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

type TempPassword struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	PasswordHash string     `json:"-"`
	ExpiresAt    time.Time  `json:"expires_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" {
		return NewValidationError("username", "username is required")
	}
	if len(r.Username) > 50 {
		return NewValidationError("username", "username must be 50 characters or less")
	}
	if r.Password == "" {
		return NewValidationError("password", "password is required")
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *ChangePasswordRequest) Validate(minLength int) error {
	if r.CurrentPassword == "" {
		return NewValidationError("current_password", "current password is required")
	}
	if len(r.NewPassword) < minLength {
		return NewValidationError("new_password", fmt.Sprintf("password must be at least %d characters", minLength))
	}
	if r.NewPassword != r.ConfirmPassword {
		return NewValidationError("confirm_password", "passwords do not match")
	}
	return nil
}

type CreateUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (r *CreateUserRequest) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r *CreateUserRequest) Validate() error {
	if r.Username == "" {
		return NewValidationError("username", "username is required")
	}
	if len(r.Username) > 50 {
		return NewValidationError("username", "username must be 50 characters or less")
	}
	if r.DisplayName == "" {
		return NewValidationError("display_name", "display name is required")
	}
	if !IsValidRole(r.Role) {
		return NewValidationError("role", "invalid role")
	}
	return nil
}

// SafeUser is a User without credential state, safe to return to clients.
type SafeUser struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	DisplayName        string     `json:"display_name"`
	Role               string     `json:"role"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	LockedUntil        *time.Time `json:"locked_until,omitempty"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (u *User) ToSafeUser() *SafeUser {
	return &SafeUser{
		ID:                 u.ID,
		Username:           u.Username,
		DisplayName:        u.DisplayName,
		Role:               u.Role,
		IsActive:           u.IsActive,
		MustChangePassword: u.MustChangePassword,
		LockedUntil:        u.LockedUntil,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
	}
}
