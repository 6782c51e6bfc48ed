package repositories

import (
	"context"

	"planora/internal/models"

	"github.com/google/uuid"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	Get(ctx context.Context, tenantID, identityID uuid.UUID) (*models.Membership, error)
	// ListByIdentity returns memberships joined with tenant public fields,
	// ordered by joined_at then tenant id so the "default tenant" pick on
	// login is deterministic.
	ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error)
	Delete(ctx context.Context, tenantID, identityID uuid.UUID) error
}

type membershipRepo struct {
	db DB
}

func NewMembershipRepo(db DB) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (id, tenant_id, identity_id, role, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, membership.ID, membership.TenantID, membership.IdentityID, membership.Role, membership.Status)
	return translateError(err)
}

func (r *membershipRepo) Get(ctx context.Context, tenantID, identityID uuid.UUID) (*models.Membership, error) {
	membership := &models.Membership{}
	query := `
		SELECT id, tenant_id, identity_id, role, status, joined_at
		FROM memberships
		WHERE tenant_id = $1 AND identity_id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, identityID).Scan(
		&membership.ID, &membership.TenantID, &membership.IdentityID,
		&membership.Role, &membership.Status, &membership.JoinedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return membership, nil
}

func (r *membershipRepo) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error) {
	query := `
		SELECT m.tenant_id, t.name, t.slug, m.role, m.status, m.joined_at
		FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.identity_id = $1
		ORDER BY m.joined_at ASC, m.tenant_id ASC
	`
	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var memberships []*models.MembershipInfo
	for rows.Next() {
		info := &models.MembershipInfo{}
		if err := rows.Scan(&info.TenantID, &info.TenantName, &info.TenantSlug, &info.Role, &info.Status, &info.JoinedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, info)
	}
	return memberships, rows.Err()
}

func (r *membershipRepo) Delete(ctx context.Context, tenantID, identityID uuid.UUID) error {
	query := `DELETE FROM memberships WHERE tenant_id = $1 AND identity_id = $2`
	_, err := r.db.Exec(ctx, query, tenantID, identityID)
	return translateError(err)
}
