package services

import (
	"context"

	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventService writes the append-only audit trail. Recording is
// best-effort: a failed insert is logged server-side and never surfaces to
// the caller, so audit problems cannot break authentication itself.
type SecurityEventService interface {
	Record(ctx context.Context, identityID *uuid.UUID, eventType string, success bool, details string, meta models.RequestMeta)
	ListForIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*models.SecurityEvent, error)
}

type securityEventService struct {
	eventRepo repositories.SecurityEventRepository
	logger    *zap.Logger
}

func NewSecurityEventService(eventRepo repositories.SecurityEventRepository, logger *zap.Logger) SecurityEventService {
	return &securityEventService{eventRepo: eventRepo, logger: logger}
}

func (s *securityEventService) Record(ctx context.Context, identityID *uuid.UUID, eventType string, success bool, details string, meta models.RequestMeta) {
	event := &models.SecurityEvent{
		ID:         uuid.New(),
		IdentityID: identityID,
		EventType:  eventType,
		Success:    success,
		Details:    details,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.Error("failed to record security event",
			zap.String("event_type", eventType),
			zap.Bool("success", success),
			zap.Error(err))
	}
}

func (s *securityEventService) ListForIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*models.SecurityEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.ListByIdentity(ctx, identityID, limit, offset)
}
