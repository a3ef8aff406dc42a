package domain

import "time"

// Audit actions written by the auth and admin flows.
const (
	AuditLoginFailed          = "login_failed"
	AuditLoginSuccess         = "login_success"
	AuditLogout               = "logout"
	AuditPasswordChanged      = "password_changed"
	AuditPasswordChangeFailed = "password_change_failed"
	AuditCreateUser           = "create_user"
	AuditResetPassword        = "reset_password"
	AuditUnlockAccount        = "unlock_account"
	AuditEnableUser           = "enable_user"
	AuditDisableUser          = "disable_user"
)

type AuditEntry struct {
	ID        string         `json:"id"`
	UserID    *string        `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Username  string         `json:"username,omitempty"`
}
