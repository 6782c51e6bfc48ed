package services

import (
	"context"
	"time"

	"planora/internal/mail"
	"planora/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock repositories and collaborators shared across the service tests.

type MockIdentityRepository struct {
	mock.Mock
}

func (m *MockIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityRepository) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) error {
	args := m.Called(ctx, id, displayName)
	return args.Error(0)
}

func (m *MockIdentityRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockIdentityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIdentityRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int, window time.Duration) (int, *time.Time, error) {
	args := m.Called(ctx, id, threshold, window)
	var lockedUntil *time.Time
	if args.Get(1) != nil {
		lockedUntil = args.Get(1).(*time.Time)
	}
	return args.Int(0), lockedUntil, args.Error(2)
}

func (m *MockIdentityRepository) ResetFailedLogins(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIdentityRepository) SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string, provisionedAt time.Time) error {
	args := m.Called(ctx, id, secret, provisionedAt)
	return args.Error(0)
}

func (m *MockIdentityRepository) ConfirmTwoFactor(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	args := m.Called(ctx, id, confirmedAt)
	return args.Error(0)
}

func (m *MockIdentityRepository) ClearTwoFactor(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIdentityRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Get(ctx context.Context, tenantID, identityID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, tenantID, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MembershipInfo), args.Error(1)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, tenantID, identityID uuid.UUID) error {
	args := m.Called(ctx, tenantID, identityID)
	return args.Error(0)
}

type MockInvitationRepository struct {
	mock.Mock
}

func (m *MockInvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	args := m.Called(ctx, invitation)
	return args.Error(0)
}

func (m *MockInvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) MarkAccepted(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvitationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockRecoveryCodeRepository struct {
	mock.Mock
}

func (m *MockRecoveryCodeRepository) ReplaceAll(ctx context.Context, identityID uuid.UUID, hashes []string) error {
	args := m.Called(ctx, identityID, hashes)
	return args.Error(0)
}

func (m *MockRecoveryCodeRepository) ListUnused(ctx context.Context, identityID uuid.UUID) ([]*models.RecoveryCode, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecoveryCode), args.Error(1)
}

func (m *MockRecoveryCodeRepository) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecoveryCodeRepository) DeleteAll(ctx context.Context, identityID uuid.UUID) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

type MockResetTokenRepository struct {
	mock.Mock
}

func (m *MockResetTokenRepository) Create(ctx context.Context, token *models.ResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockResetTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResetToken), args.Error(1)
}

func (m *MockResetTokenRepository) MarkUsed(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockSecurityEventRepository struct {
	mock.Mock
}

func (m *MockSecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSecurityEventRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*models.SecurityEvent, error) {
	args := m.Called(ctx, identityID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SecurityEvent), args.Error(1)
}

func (m *MockSecurityEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, email, password, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) VerifyPassword(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *MockProvider) UpdatePassword(ctx context.Context, providerID, newPassword string) error {
	args := m.Called(ctx, providerID, newPassword)
	return args.Error(0)
}

func (m *MockProvider) DeleteIdentity(ctx context.Context, providerID string) error {
	args := m.Called(ctx, providerID)
	return args.Error(0)
}

func (m *MockProvider) SendVerificationEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendMail(ctx context.Context, e *mail.Email) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetMemberships(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MembershipInfo), args.Error(1)
}

func (m *MockCacheService) SetMemberships(ctx context.Context, identityID uuid.UUID, memberships []*models.MembershipInfo, ttl time.Duration) error {
	args := m.Called(ctx, identityID, memberships, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateMemberships(ctx context.Context, identityID uuid.UUID) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSecurityEventService records nothing; tests assert on the event types
// that flowed through it.
type MockSecurityEventService struct {
	mock.Mock
}

func (m *MockSecurityEventService) Record(ctx context.Context, identityID *uuid.UUID, eventType string, success bool, details string, meta models.RequestMeta) {
	m.Called(ctx, identityID, eventType, success, details, meta)
}

func (m *MockSecurityEventService) ListForIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*models.SecurityEvent, error) {
	args := m.Called(ctx, identityID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SecurityEvent), args.Error(1)
}

type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) CreateWithOwner(ctx context.Context, name string, ownerID uuid.UUID) (*models.Tenant, *models.Membership, error) {
	args := m.Called(ctx, name, ownerID)
	var tenant *models.Tenant
	var membership *models.Membership
	if args.Get(0) != nil {
		tenant = args.Get(0).(*models.Tenant)
	}
	if args.Get(1) != nil {
		membership = args.Get(1).(*models.Membership)
	}
	return tenant, membership, args.Error(2)
}

func (m *MockTenantService) CreateMembership(ctx context.Context, tenantID, identityID uuid.UUID, role string) (*models.Membership, error) {
	args := m.Called(ctx, tenantID, identityID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockTenantService) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) ListMemberships(ctx context.Context, identityID uuid.UUID) ([]*models.MembershipInfo, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MembershipInfo), args.Error(1)
}

func (m *MockTenantService) CheckMembership(ctx context.Context, tenantID, identityID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, tenantID, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockTenantService) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Mint(identityID uuid.UUID, email, role string, tenantID uuid.UUID) (*models.TokenResponse, error) {
	args := m.Called(identityID, email, role, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockTokenService) Parse(token string) (*TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TokenClaims), args.Error(1)
}

func (m *MockTokenService) SwitchTenant(ctx context.Context, identityID, tenantID uuid.UUID) (*SwitchTenantResult, error) {
	args := m.Called(ctx, identityID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SwitchTenantResult), args.Error(1)
}

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) ProvisionDefault(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) GetAvailablePlans() map[string]PlanConfig {
	args := m.Called()
	return args.Get(0).(map[string]PlanConfig)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, meta models.RequestMeta) (*LoginResult, error) {
	args := m.Called(ctx, email, password, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthService) CompleteLogin(ctx context.Context, ident *models.Identity) (*LoginResult, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthService) GetProfile(ctx context.Context, identityID string) (*models.Identity, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}
