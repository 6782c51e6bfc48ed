package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"planora/internal/identity"
	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type AuthServiceTestSuite struct {
	suite.Suite
	mockIdentityRepo *MockIdentityRepository
	mockProvider     *MockProvider
	mockTenantSvc    *MockTenantService
	mockTokenSvc     *MockTokenService
	mockEvents       *MockSecurityEventService
	service          AuthService
	meta             models.RequestMeta
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.mockIdentityRepo = &MockIdentityRepository{}
	suite.mockProvider = &MockProvider{}
	suite.mockTenantSvc = &MockTenantService{}
	suite.mockTokenSvc = &MockTokenService{}
	suite.mockEvents = &MockSecurityEventService{}
	suite.service = NewAuthService(
		suite.mockIdentityRepo,
		suite.mockProvider,
		suite.mockTenantSvc,
		suite.mockTokenSvc,
		suite.mockEvents,
		LockoutPolicy{Threshold: 5, Window: 15 * time.Minute},
		zap.NewNop(),
	)
	suite.meta = models.RequestMeta{IPAddress: "203.0.113.7", UserAgent: "test-agent"}
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	suite.mockIdentityRepo.AssertExpectations(suite.T())
	suite.mockProvider.AssertExpectations(suite.T())
	suite.mockTenantSvc.AssertExpectations(suite.T())
	suite.mockTokenSvc.AssertExpectations(suite.T())
	suite.mockEvents.AssertExpectations(suite.T())
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func activeIdentity(email string) *models.Identity {
	return &models.Identity{
		ID:          uuid.New(),
		ProviderID:  "prov-" + uuid.NewString(),
		Email:       email,
		DisplayName: "Test User",
		Active:      true,
	}
}

func (suite *AuthServiceTestSuite) TestLogin_UnknownEmailSameError() {
	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repositories.ErrNotFound).Once()
	suite.mockEvents.On("Record", mock.Anything, (*uuid.UUID)(nil), models.EventLoginFailed, false, "unknown email", suite.meta).Once()

	result, err := suite.service.Login(context.Background(), "ghost@example.com", "whatever", suite.meta)

	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLogin_LockedAccountRejectedBeforeVerification() {
	ident := activeIdentity("locked@example.com")
	lockedUntil := time.Now().Add(10 * time.Minute)
	ident.LockedUntil = &lockedUntil

	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, ident.Email).Return(ident, nil).Once()
	suite.mockEvents.On("Record", mock.Anything, &ident.ID, models.EventLoginBlocked, false, "attempt while locked", suite.meta).Once()

	result, err := suite.service.Login(context.Background(), ident.Email, "correct-password", suite.meta)

	assert.Nil(suite.T(), result)
	var locked *AccountLockedError
	assert.ErrorAs(suite.T(), err, &locked)
	assert.Greater(suite.T(), locked.RetryAfter, time.Duration(0))
	// The provider must never be consulted for a locked account.
	suite.mockProvider.AssertNotCalled(suite.T(), "VerifyPassword", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestLogin_WrongPasswordIncrementsCounter() {
	ident := activeIdentity("user@example.com")

	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, ident.Email).Return(ident, nil).Once()
	suite.mockProvider.On("VerifyPassword", mock.Anything, ident.Email, "wrong").
		Return(identity.ErrBadCredentials).Once()
	suite.mockIdentityRepo.On("RecordFailedLogin", mock.Anything, ident.ID, 5, 15*time.Minute).
		Return(3, nil, nil).Once()
	suite.mockEvents.On("Record", mock.Anything, &ident.ID, models.EventLoginFailed, false, "failed attempt 3", suite.meta).Once()

	result, err := suite.service.Login(context.Background(), ident.Email, "wrong", suite.meta)

	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLogin_ThresholdFailureLocksAccount() {
	ident := activeIdentity("user@example.com")
	lockedUntil := time.Now().Add(15 * time.Minute)

	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, ident.Email).Return(ident, nil).Once()
	suite.mockProvider.On("VerifyPassword", mock.Anything, ident.Email, "wrong").
		Return(identity.ErrBadCredentials).Once()
	suite.mockIdentityRepo.On("RecordFailedLogin", mock.Anything, ident.ID, 5, 15*time.Minute).
		Return(5, &lockedUntil, nil).Once()
	suite.mockEvents.On("Record", mock.Anything, &ident.ID, models.EventLoginFailed, false, "failed attempt 5, account locked", suite.meta).Once()

	_, err := suite.service.Login(context.Background(), ident.Email, "wrong", suite.meta)

	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLogin_InactiveAccountRejectedAfterVerification() {
	ident := activeIdentity("gone@example.com")
	ident.Active = false

	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, ident.Email).Return(ident, nil).Once()
	suite.mockProvider.On("VerifyPassword", mock.Anything, ident.Email, "password1").Return(nil).Once()
	suite.mockEvents.On("Record", mock.Anything, &ident.ID, models.EventLoginFailed, false, "inactive account", suite.meta).Once()

	result, err := suite.service.Login(context.Background(), ident.Email, "password1", suite.meta)

	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, ErrIdentityInactive)
}

func (suite *AuthServiceTestSuite) TestLogin_SuccessMintsTokenForEarliestActiveMembership() {
	ident := activeIdentity("user@example.com")
	pendingTenant := uuid.New()
	activeTenant := uuid.New()
	memberships := []*models.MembershipInfo{
		{TenantID: pendingTenant, TenantName: "Pending Co", Role: models.RoleMember, Status: models.MembershipPending},
		{TenantID: activeTenant, TenantName: "Active Co", TenantSlug: "active-co", Role: models.RoleAdmin, Status: models.MembershipActive},
	}
	token := &models.TokenResponse{AccessToken: "signed", TenantID: activeTenant.String()}

	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, ident.Email).Return(ident, nil).Once()
	suite.mockProvider.On("VerifyPassword", mock.Anything, ident.Email, "password1").Return(nil).Once()
	suite.mockIdentityRepo.On("ResetFailedLogins", mock.Anything, ident.ID).Return(nil).Once()
	suite.mockEvents.On("Record", mock.Anything, &ident.ID, models.EventLoginSuccess, true, "", suite.meta).Once()
	suite.mockTenantSvc.On("ListMemberships", mock.Anything, ident.ID).Return(memberships, nil).Once()
	suite.mockTokenSvc.On("Mint", ident.ID, ident.Email, models.RoleAdmin, activeTenant).Return(token, nil).Once()

	result, err := suite.service.Login(context.Background(), ident.Email, "password1", suite.meta)

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.TwoFactorRequired)
	assert.Equal(suite.T(), token, result.Token)
	assert.Equal(suite.T(), activeTenant, result.CurrentTenant.ID)
	assert.Equal(suite.T(), "active-co", result.CurrentTenant.Slug)
	assert.Len(suite.T(), result.Memberships, 2)
}

func (suite *AuthServiceTestSuite) TestLogin_TwoFactorStepUpWithoutToken() {
	ident := activeIdentity("secure@example.com")
	ident.TwoFactorEnabled = true

	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, ident.Email).Return(ident, nil).Once()
	suite.mockProvider.On("VerifyPassword", mock.Anything, ident.Email, "password1").Return(nil).Once()
	suite.mockIdentityRepo.On("ResetFailedLogins", mock.Anything, ident.ID).Return(nil).Once()
	suite.mockEvents.On("Record", mock.Anything, &ident.ID, models.EventLoginSuccess, true, "", suite.meta).Once()

	result, err := suite.service.Login(context.Background(), ident.Email, "password1", suite.meta)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.TwoFactorRequired)
	assert.Equal(suite.T(), ident.Email, result.Email)
	assert.Nil(suite.T(), result.Token)
	suite.mockTokenSvc.AssertNotCalled(suite.T(), "Mint", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestCompleteLogin_NoActiveMembership() {
	ident := activeIdentity("orphan@example.com")
	memberships := []*models.MembershipInfo{
		{TenantID: uuid.New(), Role: models.RoleMember, Status: models.MembershipPending},
	}

	suite.mockTenantSvc.On("ListMemberships", mock.Anything, ident.ID).Return(memberships, nil).Once()

	result, err := suite.service.CompleteLogin(context.Background(), ident)

	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, ErrMembershipNotFound)
}

func (suite *AuthServiceTestSuite) TestLogin_ProviderOutageIsNotInvalidCredentials() {
	ident := activeIdentity("user@example.com")

	suite.mockIdentityRepo.On("GetByEmail", mock.Anything, ident.Email).Return(ident, nil).Once()
	suite.mockProvider.On("VerifyPassword", mock.Anything, ident.Email, "password1").
		Return(identity.ErrUnavailable).Once()

	result, err := suite.service.Login(context.Background(), ident.Email, "password1", suite.meta)

	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, identity.ErrUnavailable)
	assert.False(suite.T(), errors.Is(err, ErrInvalidCredentials))
	suite.mockIdentityRepo.AssertNotCalled(suite.T(), "RecordFailedLogin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
