package repositories

import (
	"context"
	"fmt"
	"time"

	"planora/internal/models"

	"github.com/google/uuid"
)

type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Lockout bookkeeping. RecordFailedLogin increments the counter
	// atomically and starts the lockout window once the threshold is
	// reached; it returns the new counter value and lock expiry.
	RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int, window time.Duration) (int, *time.Time, error)
	ResetFailedLogins(ctx context.Context, id uuid.UUID) error

	// Two-factor state.
	SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string, provisionedAt time.Time) error
	ConfirmTwoFactor(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error
	ClearTwoFactor(ctx context.Context, id uuid.UUID) error

	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type identityRepo struct {
	db DB
}

func NewIdentityRepo(db DB) IdentityRepository {
	return &identityRepo{db: db}
}

const identityColumns = `id, provider_id, email, display_name, password_hash, active,
		two_factor_enabled, two_factor_secret, two_factor_provisioned_at, two_factor_confirmed_at,
		failed_login_attempts, locked_until, last_login_at, created_at, updated_at`

func (r *identityRepo) scanIdentity(row interface{ Scan(dest ...any) error }) (*models.Identity, error) {
	identity := &models.Identity{}
	err := row.Scan(
		&identity.ID, &identity.ProviderID, &identity.Email, &identity.DisplayName,
		&identity.PasswordHash, &identity.Active,
		&identity.TwoFactorEnabled, &identity.TwoFactorSecret,
		&identity.TwoFactorProvisionedAt, &identity.TwoFactorConfirmedAt,
		&identity.FailedLoginAttempts, &identity.LockedUntil, &identity.LastLoginAt,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return identity, nil
}

func (r *identityRepo) Create(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (id, provider_id, email, display_name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, identity.ID, identity.ProviderID, identity.Email, identity.DisplayName, identity.Active)
	return translateError(err)
}

func (r *identityRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE id = $1`, identityColumns)
	return r.scanIdentity(r.db.QueryRow(ctx, query, id))
}

func (r *identityRepo) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE email = $1`, identityColumns)
	return r.scanIdentity(r.db.QueryRow(ctx, query, email))
}

func (r *identityRepo) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) error {
	query := `UPDATE identities SET display_name = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, displayName, id)
	return translateError(err)
}

func (r *identityRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE identities SET active = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, active, id)
	return translateError(err)
}

func (r *identityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM identities WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return translateError(err)
}

// RecordFailedLogin relies on a single UPDATE so two concurrent failures
// cannot both read a stale counter and under-count.
func (r *identityRepo) RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int, window time.Duration) (int, *time.Time, error) {
	query := `
		UPDATE identities
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN NOW() + make_interval(secs => $3)
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until
	`
	var attempts int
	var lockedUntil *time.Time
	err := r.db.QueryRow(ctx, query, id, threshold, window.Seconds()).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, translateError(err)
	}
	return attempts, lockedUntil, nil
}

func (r *identityRepo) ResetFailedLogins(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE identities
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return translateError(err)
}

func (r *identityRepo) SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string, provisionedAt time.Time) error {
	query := `
		UPDATE identities
		SET two_factor_secret = $1, two_factor_provisioned_at = $2,
		    two_factor_enabled = FALSE, two_factor_confirmed_at = NULL, updated_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, secret, provisionedAt, id)
	return translateError(err)
}

func (r *identityRepo) ConfirmTwoFactor(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	query := `
		UPDATE identities
		SET two_factor_enabled = TRUE, two_factor_confirmed_at = $1, updated_at = NOW()
		WHERE id = $2 AND two_factor_secret IS NOT NULL
	`
	tag, err := r.db.Exec(ctx, query, confirmedAt, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *identityRepo) ClearTwoFactor(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE identities
		SET two_factor_enabled = FALSE, two_factor_secret = NULL,
		    two_factor_provisioned_at = NULL, two_factor_confirmed_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return translateError(err)
}

func (r *identityRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	query := `UPDATE identities SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, hash, id)
	return translateError(err)
}
