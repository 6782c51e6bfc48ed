package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tracks the plan a tenant is on for plan-limit bookkeeping.
// Billing itself is handled elsewhere; registration only provisions the
// default plan.
type Subscription struct {
	ID               uuid.UUID `json:"id" db:"id"`
	TenantID         uuid.UUID `json:"tenant_id" db:"tenant_id"`
	PlanID           string    `json:"plan_id" db:"plan_id"`
	Status           string    `json:"status" db:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end" db:"current_period_end"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
