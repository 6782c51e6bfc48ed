package handlers

import (
	"net/http"

	"planora/internal/common"
	"planora/internal/services"

	"github.com/labstack/echo/v4"
)

// TwoFactorHandlers handles the TOTP lifecycle and step-up verification
type TwoFactorHandlers struct {
	twoFactorSvc services.TwoFactorService
}

func NewTwoFactorHandlers(twoFactorSvc services.TwoFactorService) *TwoFactorHandlers {
	return &TwoFactorHandlers{twoFactorSvc: twoFactorSvc}
}

// Setup provisions a new TOTP secret. 2FA stays off until Enable confirms a
// valid code.
func (h *TwoFactorHandlers) Setup(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	setup, err := h.twoFactorSvc.Setup(ctx, identityID, common.RequestMeta(c))
	if err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, setup)
}

// CodeRequest carries a TOTP or recovery code
type CodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Enable confirms the provisioned secret and returns the one-time recovery
// codes. They are shown exactly once.
func (h *TwoFactorHandlers) Enable(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Code == "" {
		return common.SendValidationError(c, "code", "code is required")
	}

	codes, err := h.twoFactorSvc.Enable(ctx, identityID, req.Code, common.RequestMeta(c))
	if err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"enabled":        true,
		"recovery_codes": codes,
	})
}

// VerifyRequest carries the step-up verification payload
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// Verify completes a 2FA login. Accepts either a TOTP code or an unused
// recovery code.
func (h *TwoFactorHandlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()

	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Code == "" {
		return common.SendClientError(c, "Email and code are required")
	}

	result, err := h.twoFactorSvc.VerifyLogin(ctx, req.Email, req.Code, common.RequestMeta(c))
	if err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// Disable turns 2FA off after verifying either factor one last time
func (h *TwoFactorHandlers) Disable(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Code == "" {
		return common.SendValidationError(c, "code", "code is required")
	}

	if err := h.twoFactorSvc.Disable(ctx, identityID, req.Code, common.RequestMeta(c)); err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Two-factor authentication disabled",
	})
}

// RegenerateRecoveryCodes mints a fresh batch and invalidates all previous
// codes. Requires a current TOTP code, not a recovery code.
func (h *TwoFactorHandlers) RegenerateRecoveryCodes(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Code == "" {
		return common.SendValidationError(c, "code", "code is required")
	}

	codes, err := h.twoFactorSvc.RegenerateRecoveryCodes(ctx, identityID, req.Code, common.RequestMeta(c))
	if err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"recovery_codes": codes,
	})
}
