package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"planora/internal/common"
	"planora/internal/models"
	"planora/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, meta models.RequestMeta) (*services.LoginResult, error) {
	args := m.Called(ctx, email, password, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockAuthService) CompleteLogin(ctx context.Context, ident *models.Identity) (*services.LoginResult, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockAuthService) GetProfile(ctx context.Context, identityID string) (*models.Identity, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) CreateWithOwner(ctx context.Context, name string, ownerID uuid.UUID) (*models.Tenant, *models.Membership, error) {
	args := m.Called(ctx, name, ownerID)
	var tenant *models.Tenant
	if args.Get(0) != nil {
		tenant = args.Get(0).(*models.Tenant)
	}
	var membership *models.Membership
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

// meContext builds a GET /auth/me request whose context carries the claims
// normally hydrated by the JWT middleware.
func meContext(identityID, tenantID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ctx := context.WithValue(req.Context(), common.IdentityIDKey, identityID)
	ctx = context.WithValue(ctx, common.TenantIDKey, tenantID)
	c.SetRequest(req.WithContext(ctx))
	return c, rec
}

func TestMe_IncludesCurrentTenant(t *testing.T) {
	identityID := uuid.New()
	tenantID := uuid.New()
	ident := &models.Identity{ID: identityID, Email: "user@example.com", DisplayName: "Jordan", Active: true}
	tenant := &models.Tenant{ID: tenantID, Name: "Acme Projects", Slug: "acme-projects"}
	memberships := []*models.MembershipInfo{
		{TenantID: tenantID, TenantName: tenant.Name, TenantSlug: tenant.Slug, Role: models.RoleAdmin, Status: models.MembershipActive},
	}

	mockAuthSvc := &MockAuthService{}
	mockTenantSvc := &MockTenantService{}
	mockAuthSvc.On("GetProfile", mock.Anything, identityID.String()).Return(ident, nil).Once()
	mockTenantSvc.On("ListMemberships", mock.Anything, identityID).Return(memberships, nil).Once()
	mockTenantSvc.On("GetTenant", mock.Anything, tenantID).Return(tenant, nil).Once()

	h := NewAuthHandlers(nil, mockAuthSvc, nil, mockTenantSvc, nil)
	c, rec := meContext(identityID, tenantID)

	assert.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Identity      *models.Identity         `json:"identity"`
		Memberships   []*models.MembershipInfo `json:"memberships"`
		CurrentTenant *models.Tenant           `json:"current_tenant"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ident.Email, body.Identity.Email)
	assert.Len(t, body.Memberships, 1)
	assert.NotNil(t, body.CurrentTenant)
	assert.Equal(t, "acme-projects", body.CurrentTenant.Slug)

	mockAuthSvc.AssertExpectations(t)
	mockTenantSvc.AssertExpectations(t)
}
