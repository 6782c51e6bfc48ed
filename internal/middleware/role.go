package middleware

import (
	"net/http"

	"planora/internal/common"
	"planora/internal/models"

	"github.com/labstack/echo/v4"
)

// roleRank orders membership roles from least to most privileged.
var roleRank = map[string]int{
	models.RoleViewer: 1,
	models.RoleMember: 2,
	models.RoleAdmin:  3,
}

// RequireRole gates a route on the membership role carried in the session
// token. The check is hierarchical: an admin passes a member gate.
func RequireRole(minRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, ok := common.GetIdentityIDFromContext(ctx); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}

			role, ok := common.GetRoleFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "No role in current tenant")
			}

			if roleRank[role] < roleRank[minRole] {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}

			return next(c)
		}
	}
}
