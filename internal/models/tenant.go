package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary for all project data. Every piece of
// business data is scoped to exactly one tenant.
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Membership statuses.
const (
	MembershipActive   = "active"
	MembershipPending  = "pending"
	MembershipInactive = "inactive"
)

// Membership links an identity to a tenant with a role.
type Membership struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	IdentityID uuid.UUID `json:"identity_id" db:"identity_id"`
	Role       string    `json:"role" db:"role"`
	Status     string    `json:"status" db:"status"`
	JoinedAt   time.Time `json:"joined_at" db:"joined_at"`
}

// MembershipInfo is a membership joined with the tenant's public fields,
// as returned to clients after login or tenant switch.
type MembershipInfo struct {
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	TenantName string    `json:"tenant_name" db:"tenant_name"`
	TenantSlug string    `json:"tenant_slug" db:"tenant_slug"`
	Role       string    `json:"role" db:"role"`
	Status     string    `json:"status" db:"status"`
	JoinedAt   time.Time `json:"joined_at" db:"joined_at"`
}

// Invitation lets an existing tenant bring a new identity straight into a
// membership during registration.
type Invitation struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Email      string     `json:"email" db:"email"`
	Role       string     `json:"role" db:"role"`
	Token      string     `json:"-" db:"token"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at" db:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
