package repositories

import (
	"context"

	"planora/internal/models"

	"github.com/google/uuid"
)

type RecoveryCodeRepository interface {
	// ReplaceAll swaps the identity's whole batch inside one transaction, so
	// a regenerate can never leave a mix of old and new codes behind.
	ReplaceAll(ctx context.Context, identityID uuid.UUID, hashes []string) error
	ListUnused(ctx context.Context, identityID uuid.UUID) ([]*models.RecoveryCode, error)
	// Consume marks a code used only if it is still unused; the bool reports
	// whether this call won the claim.
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteAll(ctx context.Context, identityID uuid.UUID) error
}

type recoveryCodeRepo struct {
	db DB
}

func NewRecoveryCodeRepo(db DB) RecoveryCodeRepository {
	return &recoveryCodeRepo{db: db}
}

func (r *recoveryCodeRepo) ReplaceAll(ctx context.Context, identityID uuid.UUID, hashes []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM recovery_codes WHERE identity_id = $1`, identityID); err != nil {
		return translateError(err)
	}

	insert := `
		INSERT INTO recovery_codes (id, identity_id, code_hash, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	for _, hash := range hashes {
		if _, err := tx.Exec(ctx, insert, uuid.New(), identityID, hash); err != nil {
			return translateError(err)
		}
	}

	return tx.Commit(ctx)
}

func (r *recoveryCodeRepo) ListUnused(ctx context.Context, identityID uuid.UUID) ([]*models.RecoveryCode, error) {
	query := `
		SELECT id, identity_id, code_hash, used_at, created_at
		FROM recovery_codes
		WHERE identity_id = $1 AND used_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var codes []*models.RecoveryCode
	for rows.Next() {
		code := &models.RecoveryCode{}
		if err := rows.Scan(&code.ID, &code.IdentityID, &code.CodeHash, &code.UsedAt, &code.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *recoveryCodeRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE recovery_codes
		SET used_at = NOW()
		WHERE id = $1 AND used_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, translateError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *recoveryCodeRepo) DeleteAll(ctx context.Context, identityID uuid.UUID) error {
	query := `DELETE FROM recovery_codes WHERE identity_id = $1`
	_, err := r.db.Exec(ctx, query, identityID)
	return translateError(err)
}
