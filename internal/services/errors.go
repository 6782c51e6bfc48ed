package services

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the identity subsystem. Handlers map these onto HTTP
// statuses; messages stay deliberately vague where enumeration is a risk.
var (
	ErrEmailTaken          = errors.New("an account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrIdentityInactive    = errors.New("account is deactivated")
	ErrMembershipNotFound  = errors.New("no active membership for this tenant")
	ErrTwoFactorNotSetup   = errors.New("two-factor authentication has not been set up")
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication is not enabled")
	ErrTooManyRequests     = errors.New("too many attempts, slow down")
	ErrProvisioningTimeout = errors.New("profile provisioning did not complete")
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrInvitationInvalid   = errors.New("invitation expired or already used")
)

// AccountLockedError is the one intentionally informative failure: the
// account owner benefits from knowing how long the lockout lasts.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.RetryMinutes())
}

// RetryMinutes rounds the remaining wait up to whole minutes, never below 1.
func (e *AccountLockedError) RetryMinutes() int {
	minutes := int(e.RetryAfter.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
