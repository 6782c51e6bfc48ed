package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"planora/internal/identity"
	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginResult is the outcome of a successful credential check. When the
// identity has 2FA enabled, TwoFactorRequired is set and no token is minted;
// the client must complete step-up verification first.
type LoginResult struct {
	TwoFactorRequired bool                     `json:"two_factor_required"`
	Email             string                   `json:"email"`
	Token             *models.TokenResponse    `json:"token,omitempty"`
	Identity          *models.Identity         `json:"identity,omitempty"`
	Memberships       []*models.MembershipInfo `json:"memberships,omitempty"`
	CurrentTenant     *models.Tenant           `json:"current_tenant,omitempty"`
}

// AuthService is the credential and lockout guard in front of the external
// identity provider.
type AuthService interface {
	Login(ctx context.Context, email, password string, meta models.RequestMeta) (*LoginResult, error)
	// CompleteLogin finishes an already-verified authentication: it resolves
	// memberships, picks the default tenant and mints the token. The 2FA
	// step-up path calls it after its own verification.
	CompleteLogin(ctx context.Context, ident *models.Identity) (*LoginResult, error)
	GetProfile(ctx context.Context, identityID string) (*models.Identity, error)
}

// LockoutPolicy holds the configurable lockout parameters.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
}

type authService struct {
	identityRepo repositories.IdentityRepository
	provider     identity.Provider
	tenantSvc    TenantService
	tokenSvc     TokenService
	events       SecurityEventService
	lockout      LockoutPolicy
	logger       *zap.Logger
}

func NewAuthService(
	identityRepo repositories.IdentityRepository,
	provider identity.Provider,
	tenantSvc TenantService,
	tokenSvc TokenService,
	events SecurityEventService,
	lockout LockoutPolicy,
	logger *zap.Logger,
) AuthService {
	return &authService{
		identityRepo: identityRepo,
		provider:     provider,
		tenantSvc:    tenantSvc,
		tokenSvc:     tokenSvc,
		events:       events,
		lockout:      lockout,
		logger:       logger,
	}
}

// Login walks the lockout state machine:
//
//	Unlocked -> (threshold consecutive failures) -> Locked(until) -> (window elapses) -> Unlocked
//
// A locked account is rejected before any credential verification happens.
// Unknown email and wrong password return the identical error so responses
// cannot be used to enumerate accounts.
func (s *authService) Login(ctx context.Context, email, password string, meta models.RequestMeta) (*LoginResult, error) {
	ident, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.events.Record(ctx, nil, models.EventLoginFailed, false, "unknown email", meta)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if remaining := ident.LockedRemaining(now); remaining > 0 {
		s.events.Record(ctx, &ident.ID, models.EventLoginBlocked, false, "attempt while locked", meta)
		return nil, &AccountLockedError{RetryAfter: remaining}
	}

	if err := s.provider.VerifyPassword(ctx, email, password); err != nil {
		if errors.Is(err, identity.ErrBadCredentials) {
			attempts, lockedUntil, recErr := s.identityRepo.RecordFailedLogin(ctx, ident.ID, s.lockout.Threshold, s.lockout.Window)
			if recErr != nil {
				s.logger.Error("failed to record login failure", zap.Error(recErr))
			}
			details := fmt.Sprintf("failed attempt %d", attempts)
			if lockedUntil != nil && lockedUntil.After(now) {
				details = fmt.Sprintf("failed attempt %d, account locked", attempts)
			}
			s.events.Record(ctx, &ident.ID, models.EventLoginFailed, false, details, meta)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !ident.Active {
		s.events.Record(ctx, &ident.ID, models.EventLoginFailed, false, "inactive account", meta)
		return nil, ErrIdentityInactive
	}

	// Counter resets on any successful verified login.
	if err := s.identityRepo.ResetFailedLogins(ctx, ident.ID); err != nil {
		s.logger.Error("failed to reset login counter", zap.Error(err))
	}
	s.events.Record(ctx, &ident.ID, models.EventLoginSuccess, true, "", meta)

	if ident.TwoFactorEnabled {
		return &LoginResult{TwoFactorRequired: true, Email: ident.Email}, nil
	}

	return s.CompleteLogin(ctx, ident)
}

// CompleteLogin resolves memberships, picks the default tenant (earliest
// joined active membership) and mints the session token.
func (s *authService) CompleteLogin(ctx context.Context, ident *models.Identity) (*LoginResult, error) {
	memberships, err := s.tenantSvc.ListMemberships(ctx, ident.ID)
	if err != nil {
		return nil, err
	}

	var current *models.MembershipInfo
	for _, m := range memberships {
		if m.Status == models.MembershipActive {
			current = m
			break
		}
	}
	if current == nil {
		return nil, ErrMembershipNotFound
	}

	token, err := s.tokenSvc.Mint(ident.ID, ident.Email, current.Role, current.TenantID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Email:       ident.Email,
		Token:       token,
		Identity:    ident,
		Memberships: memberships,
		CurrentTenant: &models.Tenant{
			ID:   current.TenantID,
			Name: current.TenantName,
			Slug: current.TenantSlug,
		},
	}, nil
}

func (s *authService) GetProfile(ctx context.Context, identityID string) (*models.Identity, error) {
	id, err := uuid.Parse(identityID)
	if err != nil {
		return nil, err
	}
	return s.identityRepo.GetByID(ctx, id)
}
