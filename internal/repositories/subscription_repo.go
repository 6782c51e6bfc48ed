package repositories

import (
	"context"

	"planora/internal/models"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
}

type subscriptionRepo struct {
	db DB
}

func NewSubscriptionRepo(db DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, plan_id, status, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, subscription.ID, subscription.TenantID, subscription.PlanID, subscription.Status, subscription.CurrentPeriodEnd)
	return translateError(err)
}

func (r *subscriptionRepo) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	subscription := &models.Subscription{}
	query := `
		SELECT id, tenant_id, plan_id, status, current_period_end, created_at, updated_at
		FROM subscriptions
		WHERE tenant_id = $1
	`
	err := r.db.QueryRow(ctx, query, tenantID).Scan(
		&subscription.ID, &subscription.TenantID, &subscription.PlanID,
		&subscription.Status, &subscription.CurrentPeriodEnd, &subscription.CreatedAt, &subscription.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return subscription, nil
}
