package handlers

import (
	"net/http"

	"planora/internal/common"
	"planora/internal/services"

	"github.com/labstack/echo/v4"
)

// PasswordHandlers handles the reset and change flows
type PasswordHandlers struct {
	passwordSvc  services.PasswordService
	resetBaseURL string
}

func NewPasswordHandlers(passwordSvc services.PasswordService, resetBaseURL string) *PasswordHandlers {
	return &PasswordHandlers{
		passwordSvc:  passwordSvc,
		resetBaseURL: resetBaseURL,
	}
}

// ForgotRequest represents the forgot-password payload
type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Forgot starts a password reset. The response is identical whether or not
// the email exists.
func (h *PasswordHandlers) Forgot(c echo.Context) error {
	ctx := c.Request().Context()

	var req ForgotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendValidationError(c, "email", "a valid email is required")
	}

	if err := h.passwordSvc.Forgot(ctx, req.Email, h.resetBaseURL, common.RequestMeta(c)); err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If the account exists, a reset email has been sent",
	})
}

// ResetRequest represents the reset-password payload
type ResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Reset consumes a reset token and sets the new password
func (h *PasswordHandlers) Reset(c echo.Context) error {
	ctx := c.Request().Context()

	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Token == "" {
		return common.SendValidationError(c, "token", "token is required")
	}
	if err := common.ValidatePassword(req.NewPassword); err != nil {
		return common.SendValidationError(c, "new_password", err.Error())
	}

	if err := h.passwordSvc.Reset(ctx, req.Token, req.NewPassword, common.RequestMeta(c)); err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Password has been reset",
	})
}

// ChangeRequest represents the change-password payload
type ChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// Change sets a new password after re-verifying the current one
func (h *PasswordHandlers) Change(c echo.Context) error {
	ctx := c.Request().Context()

	identityID, ok := common.GetIdentityIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req ChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.CurrentPassword == "" {
		return common.SendValidationError(c, "current_password", "current_password is required")
	}
	if err := common.ValidatePassword(req.NewPassword); err != nil {
		return common.SendValidationError(c, "new_password", err.Error())
	}

	if err := h.passwordSvc.Change(ctx, identityID, req.CurrentPassword, req.NewPassword, common.RequestMeta(c)); err != nil {
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Password changed",
	})
}
