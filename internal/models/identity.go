package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the local mirror of an account held by the external identity
// provider. The provider owns the credential; we keep the profile, 2FA state
// and lockout bookkeeping.
type Identity struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	ProviderID             string     `json:"-" db:"provider_id"`
	Email                  string     `json:"email" db:"email"`
	DisplayName            string     `json:"display_name" db:"display_name"`
	PasswordHash           *string    `json:"-" db:"password_hash"` // Never serialize in JSON
	Active                 bool       `json:"active" db:"active"`
	TwoFactorEnabled       bool       `json:"two_factor_enabled" db:"two_factor_enabled"`
	TwoFactorSecret        *string    `json:"-" db:"two_factor_secret"`
	TwoFactorProvisionedAt *time.Time `json:"-" db:"two_factor_provisioned_at"`
	TwoFactorConfirmedAt   *time.Time `json:"-" db:"two_factor_confirmed_at"`
	FailedLoginAttempts    int        `json:"-" db:"failed_login_attempts"`
	LockedUntil            *time.Time `json:"-" db:"locked_until"`
	LastLoginAt            *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// LockedRemaining reports how long the account stays locked from now.
// Zero means the identity is not locked.
func (i *Identity) LockedRemaining(now time.Time) time.Duration {
	if i.LockedUntil == nil || !i.LockedUntil.After(now) {
		return 0
	}
	return i.LockedUntil.Sub(now)
}

// RequestMeta carries per-request client metadata into the security event log.
type RequestMeta struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}
