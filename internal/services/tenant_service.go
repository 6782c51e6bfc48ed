package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"planora/internal/caching"
	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
)

const (
	slugRetries        = 4
	membershipCacheTTL = 5 * time.Minute
)

// TenantService is the tenant registry: it owns tenant creation (with slug
// uniqueness) and membership lookups for the rest of the auth subsystem.
type TenantService interface {
	// CreateWithOwner creates a tenant plus its founding admin membership.
	CreateWithOwner(ctx context.Context, name string, ownerID uuid.UUID) (*models.Tenant, *models.Membership, error)
	CreateMembership(ctx context.Context, tenantID, identityID uuid.UUID, role string) (*models.Membership, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListMemberships(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error)
	CheckMembership(ctx context.Context, tenantID, identityID uuid.UUID) (*models.Membership, error)
	DeleteTenant(ctx context.Context, id uuid.UUID) error
}

type tenantService struct {
	tenantRepo     repositories.TenantRepository
	membershipRepo repositories.MembershipRepository
	cacheSvc       caching.CacheService
}

func NewTenantService(tenantRepo repositories.TenantRepository, membershipRepo repositories.MembershipRepository, cacheSvc caching.CacheService) TenantService {
	return &tenantService{
		tenantRepo:     tenantRepo,
		membershipRepo: membershipRepo,
		cacheSvc:       cacheSvc,
	}
}

func (s *tenantService) CreateWithOwner(ctx context.Context, name string, ownerID uuid.UUID) (*models.Tenant, *models.Membership, error) {
	tenant, err := s.createWithUniqueSlug(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	membership, err := s.CreateMembership(ctx, tenant.ID, ownerID, models.RoleAdmin)
	if err != nil {
		// A tenant must never exist without at least one member.
		s.tenantRepo.Delete(ctx, tenant.ID)
		return nil, nil, err
	}

	return tenant, membership, nil
}

// createWithUniqueSlug retries on slug collisions with a short random suffix,
// then falls back to a timestamp suffix which cannot collide in practice.
func (s *tenantService) createWithUniqueSlug(ctx context.Context, name string) (*models.Tenant, error) {
	base := Slugify(name)

	slug := base
	for attempt := 0; attempt <= slugRetries; attempt++ {
		tenant := &models.Tenant{
			ID:   uuid.New(),
			Name: name,
			Slug: slug,
		}
		err := s.tenantRepo.Create(ctx, tenant)
		if err == nil {
			return tenant, nil
		}
		if err != repositories.ErrDuplicate {
			return nil, err
		}
		slug = fmt.Sprintf("%s-%s", base, randomSuffix())
	}

	tenant := &models.Tenant{
		ID:   uuid.New(),
		Name: name,
		Slug: fmt.Sprintf("%s-%d", base, time.Now().UnixNano()),
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) CreateMembership(ctx context.Context, tenantID, identityID uuid.UUID, role string) (*models.Membership, error) {
	membership := &models.Membership{
		ID:         uuid.New(),
		TenantID:   tenantID,
		IdentityID: identityID,
		Role:       role,
		Status:     models.MembershipActive,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}
	s.cacheSvc.InvalidateMemberships(ctx, identityID)
	return membership, nil
}

func (s *tenantService) ListMemberships(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error) {
	if cached, err := s.cacheSvc.GetMemberships(ctx, identityID); err == nil && cached != nil {
		return cached, nil
	}

	memberships, err := s.membershipRepo.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	s.cacheSvc.SetMemberships(ctx, identityID, memberships, membershipCacheTTL)
	return memberships, nil
}

func (s *tenantService) CheckMembership(ctx context.Context, tenantID, identityID uuid.UUID) (*models.Membership, error) {
	membership, err := s.membershipRepo.Get(ctx, tenantID, identityID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return membership, nil
}

func (s *tenantService) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *tenantService) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	return s.tenantRepo.Delete(ctx, id)
}

// Slugify lowercases the name and collapses everything outside [a-z0-9] into
// single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "workspace"
	}
	return slug
}

func randomSuffix() string {
	b := make([]byte, 2)
	rand.Read(b)
	return hex.EncodeToString(b)
}
