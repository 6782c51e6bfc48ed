package handlers

import (
	"net/http"
	"strconv"

	"planora/internal/common"
	"planora/internal/models"
	"planora/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles registration, login and session-related HTTP requests
type AuthHandlers struct {
	registrationSvc services.RegistrationService
	authSvc         services.AuthService
	tokenSvc        services.TokenService
	tenantSvc       services.TenantService
	eventSvc        services.SecurityEventService
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(
	registrationSvc services.RegistrationService,
	authSvc services.AuthService,
	tokenSvc services.TokenService,
	tenantSvc services.TenantService,
	eventSvc services.SecurityEventService,
) *AuthHandlers {
	return &AuthHandlers{
		registrationSvc: registrationSvc,
		authSvc:         authSvc,
		tokenSvc:        tokenSvc,
		tenantSvc:       tenantSvc,
		eventSvc:        eventSvc,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	TenantName  string `json:"tenant_name" validate:"max=100"`
	InviteToken string `json:"invite_token"`
}

// Register handles account creation, with either a new workspace or an
// invitation token
func (h *AuthHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}
	if err := common.ValidatePassword(req.Password); err != nil {
		return common.SendValidationError(c, "password", err.Error())
	}

	result, err := h.registrationSvc.Register(ctx, services.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		TenantName:  req.TenantName,
		InviteToken: req.InviteToken,
		Meta:        common.RequestMeta(c),
	})
	if err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles login with email and password. Accounts with 2FA enabled get
// a step-up response instead of a token.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, "Email and password are required")
	}

	result, err := h.authSvc.Login(ctx, req.Email, req.Password, common.RequestMeta(c))
	if err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// Me handles getting the current identity's profile
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	ident, err := h.authSvc.GetProfile(ctx, identityID.String())
	if err != nil {
		return common.SendNotFoundError(c, "Identity")
	}

	memberships, err := h.tenantSvc.ListMemberships(ctx, identityID)
	if err != nil {
		return common.SendServiceError(c, err)
	}

	var tenant *models.Tenant
	if tenantID, ok := common.GetTenantIDFromContext(ctx); ok {
		tenant, err = h.tenantSvc.GetTenant(ctx, tenantID)
		if err != nil {
			return common.SendServiceError(c, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"identity":       ident,
		"memberships":    memberships,
		"current_tenant": tenant,
	})
}

// SwitchTenantRequest represents the tenant switch request payload
type SwitchTenantRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
}

// SwitchTenant re-mints the session token for another tenant the identity
// belongs to
func (h *AuthHandlers) SwitchTenant(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req SwitchTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenantID, err := common.ValidateUUID(req.TenantID, "tenant_id")
	if err != nil {
		return common.SendValidationError(c, "tenant_id", err.Error())
	}

	result, err := h.tokenSvc.SwitchTenant(ctx, identityID, tenantID)
	if err != nil {
		return common.SendServiceError(c, err)
	}

	h.eventSvc.Record(ctx, &identityID, models.EventTenantSwitched, true, tenantID.String(), common.RequestMeta(c))

	return c.JSON(http.StatusOK, result)
}

// UpdateProfileRequest represents the profile update payload
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// UpdateProfile updates mutable profile fields on the current identity
func (h *AuthHandlers) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendValidationError(c, "display_name", "display_name is required")
	}

	if err := h.registrationSvc.UpdateProfile(ctx, identityID, req.DisplayName); err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Profile updated",
	})
}

// Deactivate soft-deletes the current identity; existing tokens stop working
// on the next request
func (h *AuthHandlers) Deactivate(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.registrationSvc.Deactivate(ctx, identityID); err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Account deactivated",
	})
}

// SecurityEvents lists the current identity's audit trail, newest first
func (h *AuthHandlers) SecurityEvents(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	events, err := h.eventSvc.ListForIdentity(ctx, identityID, limit, offset)
	if err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}
