package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"planora/internal/identity"
	"planora/internal/mail"
	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	profileCreateAttempts = 3
	profileRetryBackoff   = 200 * time.Millisecond
)

// RegisterRequest carries the inputs for a registration. Exactly one of
// TenantName/InviteToken matters: an invitation wins when both are present.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	TenantName  string
	InviteToken string
	Meta        models.RequestMeta
}

// RegistrationService runs the registration saga: provider identity, local
// profile, then tenant and membership, with compensation on partial failure.
type RegistrationService interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResult, error)
	UpdateProfile(ctx context.Context, identityID uuid.UUID, displayName string) error
	Deactivate(ctx context.Context, identityID uuid.UUID) error
}

type registrationService struct {
	identityRepo   repositories.IdentityRepository
	invitationRepo repositories.InvitationRepository
	provider       identity.Provider
	tenantSvc      TenantService
	tokenSvc       TokenService
	subscriptions  SubscriptionService
	events         SecurityEventService
	mailer         mail.Mailer
	logger         *zap.Logger
}

func NewRegistrationService(
	identityRepo repositories.IdentityRepository,
	invitationRepo repositories.InvitationRepository,
	provider identity.Provider,
	tenantSvc TenantService,
	tokenSvc TokenService,
	subscriptions SubscriptionService,
	events SecurityEventService,
	mailer mail.Mailer,
	logger *zap.Logger,
) RegistrationService {
	return &registrationService{
		identityRepo:   identityRepo,
		invitationRepo: invitationRepo,
		provider:       provider,
		tenantSvc:      tenantSvc,
		tokenSvc:       tokenSvc,
		subscriptions:  subscriptions,
		events:         events,
		mailer:         mailer,
		logger:         logger,
	}
}

func (s *registrationService) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	// Step 1: duplicate email check.
	if _, err := s.identityRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	// Step 2: create the identity at the provider, then mirror it locally.
	providerID, err := s.provider.CreateIdentity(ctx, req.Email, req.Password, map[string]string{
		"display_name": req.DisplayName,
	})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	ident, err := s.createProfile(ctx, providerID, req.Email, req.DisplayName)
	if err != nil {
		if delErr := s.provider.DeleteIdentity(ctx, providerID); delErr != nil {
			s.logger.Error("compensation failed: orphaned provider identity",
				zap.String("provider_id", providerID), zap.Error(delErr))
		}
		return nil, err
	}

	// Step 3: invitation branch or new tenant branch. Any failure here rolls
	// the saga back in reverse order: local profile first, then provider.
	membership, tenant, err := s.attachTenant(ctx, ident, req)
	if err != nil {
		s.compensate(ctx, ident)
		return nil, err
	}

	s.events.Record(ctx, &ident.ID, models.EventRegistered, true,
		fmt.Sprintf("tenant %s as %s", tenant.Slug, membership.Role), req.Meta)

	// Best-effort side effects. None of these may fail the registration.
	go s.postRegistration(ident, tenant)

	token, err := s.tokenSvc.Mint(ident.ID, ident.Email, membership.Role, tenant.ID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.tenantSvc.ListMemberships(ctx, ident.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Email:         ident.Email,
		Token:         token,
		Identity:      ident,
		Memberships:   memberships,
		CurrentTenant: tenant,
	}, nil
}

// createProfile mirrors the provider identity into the local store, retrying
// transient failures a bounded number of times.
func (s *registrationService) createProfile(ctx context.Context, providerID, email, displayName string) (*models.Identity, error) {
	ident := &models.Identity{
		ID:          uuid.New(),
		ProviderID:  providerID,
		Email:       email,
		DisplayName: displayName,
		Active:      true,
	}

	var lastErr error
	for attempt := 1; attempt <= profileCreateAttempts; attempt++ {
		lastErr = s.identityRepo.Create(ctx, ident)
		if lastErr == nil {
			return ident, nil
		}
		if errors.Is(lastErr, repositories.ErrDuplicate) {
			// A concurrent registration won; surface it as a conflict.
			return nil, ErrEmailTaken
		}
		s.logger.Warn("profile create failed, retrying",
			zap.Int("attempt", attempt), zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(profileRetryBackoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrProvisioningTimeout, lastErr)
}

func (s *registrationService) attachTenant(ctx context.Context, ident *models.Identity, req RegisterRequest) (*models.Membership, *models.Tenant, error) {
	if req.InviteToken != "" {
		return s.acceptInvitation(ctx, ident, req.InviteToken)
	}

	name := strings.TrimSpace(req.TenantName)
	if name == "" {
		name = fmt.Sprintf("%s's Workspace", req.DisplayName)
	}

	tenant, membership, err := s.tenantSvc.CreateWithOwner(ctx, name, ident.ID)
	if err != nil {
		return nil, nil, err
	}
	return membership, tenant, nil
}

func (s *registrationService) acceptInvitation(ctx context.Context, ident *models.Identity, token string) (*models.Membership, *models.Tenant, error) {
	invitation, err := s.invitationRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrInvitationNotFound
		}
		return nil, nil, err
	}
	if invitation.AcceptedAt != nil || time.Now().After(invitation.ExpiresAt) {
		return nil, nil, ErrInvitationInvalid
	}
	if !strings.EqualFold(invitation.Email, ident.Email) {
		return nil, nil, fmt.Errorf("%w: issued for a different email", ErrInvitationInvalid)
	}

	claimed, err := s.invitationRepo.MarkAccepted(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !claimed {
		return nil, nil, ErrInvitationInvalid
	}

	membership, err := s.tenantSvc.CreateMembership(ctx, invitation.TenantID, ident.ID, invitation.Role)
	if err != nil {
		return nil, nil, err
	}

	tenant, err := s.tenantSvc.GetTenant(ctx, invitation.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return membership, tenant, nil
}

// compensate unwinds a partially completed registration in reverse order.
// The caller never sees a state where a provider identity exists without a
// local profile and tenant.
func (s *registrationService) compensate(ctx context.Context, ident *models.Identity) {
	if err := s.identityRepo.Delete(ctx, ident.ID); err != nil {
		s.logger.Error("compensation failed: local profile remains",
			zap.String("identity_id", ident.ID.String()), zap.Error(err))
	}
	if err := s.provider.DeleteIdentity(ctx, ident.ProviderID); err != nil {
		s.logger.Error("compensation failed: orphaned provider identity",
			zap.String("provider_id", ident.ProviderID), zap.Error(err))
	}
}

// postRegistration runs the fire-and-forget side effects of a successful
// registration: default plan, verification mail, welcome mail.
func (s *registrationService) postRegistration(ident *models.Identity, tenant *models.Tenant) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.subscriptions.ProvisionDefault(ctx, tenant.ID); err != nil {
		s.logger.Error("default subscription provisioning failed",
			zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
	}
	if err := s.provider.SendVerificationEmail(ctx, ident.Email); err != nil {
		s.logger.Warn("verification email failed", zap.Error(err))
	}
	if err := s.mailer.SendMail(ctx, mail.Welcome(ident.Email, ident.DisplayName, tenant.Name)); err != nil {
		s.logger.Warn("welcome email failed", zap.Error(err))
	}
}

func (s *registrationService) UpdateProfile(ctx context.Context, identityID uuid.UUID, displayName string) error {
	return s.identityRepo.UpdateProfile(ctx, identityID, displayName)
}

// Deactivate flips the active flag; identities are never hard-deleted.
func (s *registrationService) Deactivate(ctx context.Context, identityID uuid.UUID) error {
	return s.identityRepo.SetActive(ctx, identityID, false)
}
