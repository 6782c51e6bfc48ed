package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"planora/internal/models"
	"planora/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	IdentityIDKey contextKey = "identity_id"
	TenantIDKey   contextKey = "tenant_id"
	RoleKey       contextKey = "role"
	EmailKey      contextKey = "email"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// SendServiceError maps a service-layer error onto the HTTP surface. Unknown
// errors collapse to a generic 500 so internals never leak to clients.
func SendServiceError(c echo.Context, err error) error {
	var locked *services.AccountLockedError
	if errors.As(err, &locked) {
		c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(locked.RetryAfter.Seconds())))
		return c.JSON(http.StatusLocked, CreateErrorResponse("ACCOUNT_LOCKED",
			fmt.Sprintf("Account locked. Try again in %d minutes", locked.RetryMinutes()), nil))
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, CreateErrorResponse("INVALID_CREDENTIALS", "Invalid email or password", nil))
	case errors.Is(err, services.ErrInvalidCode):
		return c.JSON(http.StatusUnauthorized, CreateErrorResponse("INVALID_CODE", "Invalid verification code", nil))
	case errors.Is(err, services.ErrInvalidResetToken):
		return c.JSON(http.StatusUnauthorized, CreateErrorResponse("INVALID_RESET_TOKEN", "Reset token is invalid or expired", nil))
	case errors.Is(err, services.ErrEmailTaken):
		return c.JSON(http.StatusConflict, CreateErrorResponse("EMAIL_TAKEN", "An account with this email already exists", nil))
	case errors.Is(err, services.ErrIdentityInactive):
		return c.JSON(http.StatusForbidden, CreateErrorResponse("ACCOUNT_INACTIVE", "This account has been deactivated", nil))
	case errors.Is(err, services.ErrMembershipNotFound):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("MEMBERSHIP_NOT_FOUND", "No active membership in this workspace", nil))
	case errors.Is(err, services.ErrInvitationNotFound):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("INVITATION_NOT_FOUND", "Invitation not found", nil))
	case errors.Is(err, services.ErrInvitationInvalid):
		return c.JSON(http.StatusBadRequest, CreateErrorResponse("INVITATION_INVALID", "Invitation is expired or no longer valid", nil))
	case errors.Is(err, services.ErrTwoFactorNotSetup), errors.Is(err, services.ErrTwoFactorNotEnabled):
		return c.JSON(http.StatusBadRequest, CreateErrorResponse("TWO_FACTOR_STATE", err.Error(), nil))
	case errors.Is(err, services.ErrTooManyRequests):
		return c.JSON(http.StatusTooManyRequests, CreateErrorResponse("RATE_LIMITED", "Too many attempts. Try again later", nil))
	case errors.Is(err, services.ErrProvisioningTimeout):
		return c.JSON(http.StatusServiceUnavailable, CreateErrorResponse("PROVISIONING_FAILED", "Account could not be provisioned. Please try again", nil))
	default:
		return SendServerError(c, "operation could not be completed")
	}
}

// ValidateUUID validates UUID format with comprehensive checks
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	if strings.TrimSpace(idStr) == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	idStr = strings.TrimSpace(idStr)

	if len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("%s must be exactly 36 characters (including hyphens)", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s contains invalid characters: %v", fieldName, err)
	}

	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidatePassword enforces the minimum credential policy before the value
// is handed to the identity provider.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return fmt.Errorf("password cannot exceed 72 characters")
	}
	return nil
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}

	return limit, offset, nil
}

// GetIdentityIDFromContext extracts the identity ID from the request context
func GetIdentityIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	identityID, ok := ctx.Value(IdentityIDKey).(uuid.UUID)
	return identityID, ok
}

// GetTenantIDFromContext extracts the tenant ID from the request context
func GetTenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return tenantID, ok
}

// GetRoleFromContext extracts the membership role from the request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// RequestMeta captures the caller's network fingerprint for the security
// event log.
func RequestMeta(c echo.Context) models.RequestMeta {
	return models.RequestMeta{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
