package models

import "time"

// TokenResponse is the bearer credential handed back on every successful
// authentication path.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	IdentityID  string    `json:"identity_id"`
	TenantID    string    `json:"tenant_id"`
	Role        string    `json:"role"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ResetToken is a single-use, time-boxed password reset credential. Only the
// SHA-256 hash of the token is stored.
type ResetToken struct {
	ID         string     `json:"id" db:"id"`
	IdentityID string     `json:"identity_id" db:"identity_id"`
	TokenHash  string     `json:"-" db:"token_hash"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	Used       bool       `json:"used" db:"used"`
	UsedAt     *time.Time `json:"used_at" db:"used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
