package repositories

import (
	"context"
	"time"

	"planora/internal/models"

	"github.com/google/uuid"
)

// SecurityEventRepository is append-only: events are never updated, and the
// only delete path is the retention trim run by the background scheduler.
type SecurityEventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
	ListByIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*models.SecurityEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type securityEventRepo struct {
	db DB
}

func NewSecurityEventRepo(db DB) SecurityEventRepository {
	return &securityEventRepo{db: db}
}

func (r *securityEventRepo) Create(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, identity_id, event_type, success, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db.Exec(ctx, query, event.ID, event.IdentityID, event.EventType, event.Success, event.Details, event.IPAddress, event.UserAgent)
	return translateError(err)
}

func (r *securityEventRepo) ListByIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, identity_id, event_type, success, details, ip_address, user_agent, created_at
		FROM security_events
		WHERE identity_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, identityID, limit, offset)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var events []*models.SecurityEvent
	for rows.Next() {
		event := &models.SecurityEvent{}
		if err := rows.Scan(&event.ID, &event.IdentityID, &event.EventType, &event.Success, &event.Details, &event.IPAddress, &event.UserAgent, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *securityEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM security_events WHERE created_at < $1`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, translateError(err)
	}
	return tag.RowsAffected(), nil
}
