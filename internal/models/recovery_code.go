package models

import (
	"time"

	"github.com/google/uuid"
)

// RecoveryCodeCount is the fixed batch size generated when 2FA is enabled or
// the batch is regenerated.
const RecoveryCodeCount = 10

// RecoveryCode is a single-use 2FA fallback credential. Only the bcrypt hash
// is stored; the plaintext leaves the system exactly once, at generation.
type RecoveryCode struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	IdentityID uuid.UUID  `json:"identity_id" db:"identity_id"`
	CodeHash   string     `json:"-" db:"code_hash"`
	UsedAt     *time.Time `json:"used_at" db:"used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Consumed reports whether the code has already been spent.
func (c *RecoveryCode) Consumed() bool {
	return c.UsedAt != nil
}
