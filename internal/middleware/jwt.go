package middleware

import (
	"context"
	"net/http"

	"planora/internal/common"
	"planora/internal/repositories"
	"planora/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTConfig builds the echo-jwt configuration for session tokens. Parsing
// and signature checks happen here; claim hydration happens in HydrateClaims.
func JWTConfig(jwtSecret string) echojwt.Config {
	return echojwt.Config{
		SigningKey:    []byte(jwtSecret),
		SigningMethod: "HS256",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(services.TokenClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or missing token")
		},
	}
}

// HydrateClaims copies the verified token claims into the request context and
// rejects tokens whose identity has since been deactivated. Runs after the
// echo-jwt middleware.
func HydrateClaims(identityRepo repositories.IdentityRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}
			claims, ok := token.Claims.(*services.TokenClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
			}

			identityID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid subject")
			}

			ident, err := identityRepo.GetByID(c.Request().Context(), identityID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Identity not found")
			}
			if !ident.Active {
				return echo.NewHTTPError(http.StatusForbidden, "Account deactivated")
			}

			ctx := context.WithValue(c.Request().Context(), common.IdentityIDKey, identityID)
			ctx = context.WithValue(ctx, common.EmailKey, claims.Email)
			ctx = context.WithValue(ctx, common.RoleKey, claims.Role)
			if claims.TenantID != "" {
				if tenantID, err := uuid.Parse(claims.TenantID); err == nil {
					ctx = context.WithValue(ctx, common.TenantIDKey, tenantID)
				}
			}
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
