package handlers

import (
	"errors"
	"net/http"

	"planora/internal/common"
	"planora/internal/repositories"
	"planora/internal/services"

	"github.com/labstack/echo/v4"
)

// SubscriptionHandlers exposes the tenant's plan row and the plan catalog.
// Billing itself lives elsewhere; this is read-only plan-limit data.
type SubscriptionHandlers struct {
	subscriptionSvc services.SubscriptionService
}

func NewSubscriptionHandlers(subscriptionSvc services.SubscriptionService) *SubscriptionHandlers {
	return &SubscriptionHandlers{subscriptionSvc: subscriptionSvc}
}

// GetSubscription handles GET /subscription for the token's active tenant.
func (h *SubscriptionHandlers) GetSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	subscription, err := h.subscriptionSvc.GetByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return common.SendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, subscription)
}

// ListPlans handles GET /plans.
func (h *SubscriptionHandlers) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans": h.subscriptionSvc.GetAvailablePlans(),
	})
}
