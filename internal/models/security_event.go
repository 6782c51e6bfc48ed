package models

import (
	"time"

	"github.com/google/uuid"
)

// Security event types emitted by the identity subsystem.
const (
	EventLoginSuccess          = "login_success"
	EventLoginFailed           = "login_failed"
	EventLoginBlocked          = "login_blocked"
	EventRegistered            = "registered"
	EventTwoFactorSetup        = "2fa_setup"
	EventTwoFactorEnabled      = "2fa_enabled"
	EventTwoFactorDisabled     = "2fa_disabled"
	EventTwoFactorVerified     = "2fa_verified"
	EventTwoFactorFailed       = "2fa_failed"
	EventRecoveryCodeUsed      = "recovery_code_used"
	EventRecoveryCodesRenewed  = "recovery_codes_regenerated"
	EventPasswordResetRequest  = "password_reset_requested"
	EventPasswordReset         = "password_reset"
	EventPasswordResetFailed   = "password_reset_failed"
	EventPasswordChanged       = "password_changed"
	EventPasswordChangeFailed  = "password_change_failed"
	EventTenantSwitched        = "tenant_switched"
)

// SecurityEvent is an append-only audit record. IdentityID is nil for
// pre-auth failures where the email did not resolve to an account.
type SecurityEvent struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	IdentityID *uuid.UUID `json:"identity_id" db:"identity_id"`
	EventType  string     `json:"event_type" db:"event_type"`
	Success    bool       `json:"success" db:"success"`
	Details    string     `json:"details" db:"details"`
	IPAddress  string     `json:"ip_address" db:"ip_address"`
	UserAgent  string     `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
