package services

import (
	"context"
	"fmt"
	"time"

	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService mints and parses the stateless bearer tokens that carry an
// identity plus its currently selected tenant. Tokens cannot be revoked
// individually; revocation is by secret rotation or expiry only.
type TokenService interface {
	Mint(identityID uuid.UUID, email, role string, tenantID uuid.UUID) (*models.TokenResponse, error)
	Parse(token string) (*TokenClaims, error)
	SwitchTenant(ctx context.Context, identityID, tenantID uuid.UUID) (*SwitchTenantResult, error)
}

// TokenClaims is the fixed claim set embedded in every session token.
type TokenClaims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// SwitchTenantResult carries everything the client needs after changing the
// active tenant: a fresh token, the full membership list, and the selected
// tenant's public fields.
type SwitchTenantResult struct {
	Token       *models.TokenResponse    `json:"token"`
	Memberships []*models.MembershipInfo `json:"memberships"`
	Tenant      *models.Tenant           `json:"current_tenant"`
}

type tokenService struct {
	identityRepo   repositories.IdentityRepository
	membershipRepo repositories.MembershipRepository
	tenantRepo     repositories.TenantRepository
	jwtSecret      []byte
	tokenTTL       time.Duration
}

func NewTokenService(
	identityRepo repositories.IdentityRepository,
	membershipRepo repositories.MembershipRepository,
	tenantRepo repositories.TenantRepository,
	jwtSecret string,
	tokenTTL time.Duration,
) TokenService {
	return &tokenService{
		identityRepo:   identityRepo,
		membershipRepo: membershipRepo,
		tenantRepo:     tenantRepo,
		jwtSecret:      []byte(jwtSecret),
		tokenTTL:       tokenTTL,
	}
}

func (s *tokenService) Mint(identityID uuid.UUID, email, role string, tenantID uuid.UUID) (*models.TokenResponse, error) {
	now := time.Now()

	claims := TokenClaims{
		Email:    email,
		Role:     role,
		TenantID: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "planora-auth",
			Subject:   identityID.String(),
			Audience:  jwt.ClaimStrings{"planora-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		IdentityID:  identityID.String(),
		TenantID:    tenantID.String(),
		Role:        role,
		IssuedAt:    now,
	}, nil
}

func (s *tokenService) Parse(token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// SwitchTenant mints a token for a different tenant after confirming the
// identity actually holds an active membership there.
func (s *tokenService) SwitchTenant(ctx context.Context, identityID, tenantID uuid.UUID) (*SwitchTenantResult, error) {
	membership, err := s.membershipRepo.Get(ctx, tenantID, identityID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if membership.Status != models.MembershipActive {
		return nil, ErrMembershipNotFound
	}

	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	token, err := s.Mint(identity.ID, identity.Email, membership.Role, tenantID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.membershipRepo.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &SwitchTenantResult{
		Token:       token,
		Memberships: memberships,
		Tenant:      tenant,
	}, nil
}
