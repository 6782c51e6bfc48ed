package services

import (
	"context"
	"time"

	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
)

// SubscriptionService provisions plan rows for plan-limit bookkeeping.
// Registration only ever needs the default free plan; everything else is
// billing territory and out of scope here.
type SubscriptionService interface {
	ProvisionDefault(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
	GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
	GetAvailablePlans() map[string]PlanConfig
}

// PlanConfig describes a subscription plan's limits.
type PlanConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxMembers  int    `json:"max_members"`
	MaxProjects int    `json:"max_projects"`
}

var availablePlans = map[string]PlanConfig{
	"free": {
		ID:          "free",
		Name:        "Free",
		MaxMembers:  5,
		MaxProjects: 3,
	},
	"team": {
		ID:          "team",
		Name:        "Team",
		MaxMembers:  25,
		MaxProjects: 50,
	},
	"business": {
		ID:          "business",
		Name:        "Business",
		MaxMembers:  250,
		MaxProjects: 1000,
	},
}

const defaultPlanID = "free"

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
}

func NewSubscriptionService(subscriptionRepo repositories.SubscriptionRepository) SubscriptionService {
	return &subscriptionService{subscriptionRepo: subscriptionRepo}
}

func (s *subscriptionService) ProvisionDefault(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	subscription := &models.Subscription{
		ID:               uuid.New(),
		TenantID:         tenantID,
		PlanID:           defaultPlanID,
		Status:           "active",
		CurrentPeriodEnd: time.Now().AddDate(0, 1, 0),
	}
	if err := s.subscriptionRepo.Create(ctx, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (s *subscriptionService) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	return s.subscriptionRepo.GetByTenant(ctx, tenantID)
}

func (s *subscriptionService) GetAvailablePlans() map[string]PlanConfig {
	return availablePlans
}
