package repositories

import (
	"context"

	"planora/internal/models"
)

type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	// MarkAccepted flips accepted_at only when still unset, so an invitation
	// cannot be consumed twice by concurrent registrations.
	MarkAccepted(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type invitationRepo struct {
	db DB
}

func NewInvitationRepo(db DB) InvitationRepository {
	return &invitationRepo{db: db}
}

func (r *invitationRepo) Create(ctx context.Context, invitation *models.Invitation) error {
	query := `
		INSERT INTO invitations (id, tenant_id, email, role, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, invitation.ID, invitation.TenantID, invitation.Email, invitation.Role, invitation.Token, invitation.ExpiresAt)
	return translateError(err)
}

func (r *invitationRepo) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	invitation := &models.Invitation{}
	query := `
		SELECT id, tenant_id, email, role, token, expires_at, accepted_at, created_at
		FROM invitations
		WHERE token = $1
	`
	err := r.db.QueryRow(ctx, query, token).Scan(
		&invitation.ID, &invitation.TenantID, &invitation.Email, &invitation.Role,
		&invitation.Token, &invitation.ExpiresAt, &invitation.AcceptedAt, &invitation.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return invitation, nil
}

func (r *invitationRepo) MarkAccepted(ctx context.Context, token string) (bool, error) {
	query := `
		UPDATE invitations
		SET accepted_at = NOW()
		WHERE token = $1 AND accepted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, token)
	if err != nil {
		return false, translateError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invitationRepo) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM invitations WHERE expires_at < NOW() AND accepted_at IS NULL`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, translateError(err)
	}
	return tag.RowsAffected(), nil
}
