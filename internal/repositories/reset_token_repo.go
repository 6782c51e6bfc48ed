package repositories

import (
	"context"

	"planora/internal/models"
)

type ResetTokenRepository interface {
	Create(ctx context.Context, token *models.ResetToken) error
	GetByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error)
	// MarkUsed claims the token with a conditional update; the bool reports
	// whether this call got it first.
	MarkUsed(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type resetTokenRepo struct {
	db DB
}

func NewResetTokenRepo(db DB) ResetTokenRepository {
	return &resetTokenRepo{db: db}
}

func (r *resetTokenRepo) Create(ctx context.Context, token *models.ResetToken) error {
	query := `
		INSERT INTO reset_tokens (id, identity_id, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
	`
	_, err := r.db.Exec(ctx, query, token.ID, token.IdentityID, token.TokenHash, token.ExpiresAt)
	return translateError(err)
}

func (r *resetTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error) {
	token := &models.ResetToken{}
	query := `
		SELECT id, identity_id, token_hash, expires_at, used, used_at, created_at
		FROM reset_tokens
		WHERE token_hash = $1
	`
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.IdentityID, &token.TokenHash,
		&token.ExpiresAt, &token.Used, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return token, nil
}

func (r *resetTokenRepo) MarkUsed(ctx context.Context, tokenHash string) (bool, error) {
	query := `
		UPDATE reset_tokens
		SET used = TRUE, used_at = NOW()
		WHERE token_hash = $1 AND used = FALSE
	`
	tag, err := r.db.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, translateError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *resetTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM reset_tokens WHERE used = TRUE OR expires_at < NOW()`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, translateError(err)
	}
	return tag.RowsAffected(), nil
}
