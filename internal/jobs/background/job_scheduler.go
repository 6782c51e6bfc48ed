package background

import (
	"context"
	"sync"
	"time"

	"planora/internal/repositories"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Security events older than this are trimmed from the audit table.
const eventRetention = 180 * 24 * time.Hour

// JobScheduler runs the periodic housekeeping jobs: purging spent reset
// tokens, expired invitations, and aged-out security events.
type JobScheduler struct {
	scheduler      gocron.Scheduler
	resetTokenRepo repositories.ResetTokenRepository
	invitationRepo repositories.InvitationRepository
	eventRepo      repositories.SecurityEventRepository
	logger         *zap.Logger
	jobs           map[string]gocron.Job
	mu             sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(
	resetTokenRepo repositories.ResetTokenRepository,
	invitationRepo repositories.InvitationRepository,
	eventRepo repositories.SecurityEventRepository,
	logger *zap.Logger,
) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:      scheduler,
		resetTokenRepo: resetTokenRepo,
		invitationRepo: invitationRepo,
		eventRepo:      eventRepo,
		logger:         logger,
		jobs:           make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	tokenJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.purgeResetTokens),
		gocron.WithName("reset-token-purge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		js.logger.Error("failed to create reset-token purge job", zap.Error(err))
	} else {
		js.jobs["reset-token-purge"] = tokenJob
	}

	inviteJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.purgeExpiredInvitations),
		gocron.WithName("invitation-purge"),
	)
	if err != nil {
		js.logger.Error("failed to create invitation purge job", zap.Error(err))
	} else {
		js.jobs["invitation-purge"] = inviteJob
	}

	eventJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.trimSecurityEvents),
		gocron.WithName("security-event-trim"),
	)
	if err != nil {
		js.logger.Error("failed to create security-event trim job", zap.Error(err))
	} else {
		js.jobs["security-event-trim"] = eventJob
	}

	js.logger.Info("registered background jobs", zap.Int("count", len(js.jobs)))
}

func (js *JobScheduler) purgeResetTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := js.resetTokenRepo.DeleteExpired(ctx)
	if err != nil {
		js.logger.Error("reset-token purge failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		js.logger.Info("purged reset tokens", zap.Int64("deleted", deleted))
	}
}

func (js *JobScheduler) purgeExpiredInvitations() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := js.invitationRepo.DeleteExpired(ctx)
	if err != nil {
		js.logger.Error("invitation purge failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		js.logger.Info("purged expired invitations", zap.Int64("deleted", deleted))
	}
}

func (js *JobScheduler) trimSecurityEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-eventRetention)
	deleted, err := js.eventRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		js.logger.Error("security-event trim failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		js.logger.Info("trimmed security events", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
