package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"planora/internal/caching"
	"planora/internal/identity"
	"planora/internal/mail"
	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenTTL    = time.Hour
	forgotRateMax    = 5
	forgotRateWindow = 15 * time.Minute
)

// PasswordService owns the reset and change flows. The provider stays the
// source of truth for the credential; the local bcrypt hash is only a
// best-effort mirror for systems that need one.
type PasswordService interface {
	// Forgot never discloses whether the email exists.
	Forgot(ctx context.Context, email, resetBaseURL string, meta models.RequestMeta) error
	Reset(ctx context.Context, token, newPassword string, meta models.RequestMeta) error
	Change(ctx context.Context, identityID uuid.UUID, currentPassword, newPassword string, meta models.RequestMeta) error
}

type passwordService struct {
	identityRepo repositories.IdentityRepository
	tokenRepo    repositories.ResetTokenRepository
	provider     identity.Provider
	cacheSvc     caching.CacheService
	events       SecurityEventService
	mailer       mail.Mailer
	logger       *zap.Logger
}

func NewPasswordService(
	identityRepo repositories.IdentityRepository,
	tokenRepo repositories.ResetTokenRepository,
	provider identity.Provider,
	cacheSvc caching.CacheService,
	events SecurityEventService,
	mailer mail.Mailer,
	logger *zap.Logger,
) PasswordService {
	return &passwordService{
		identityRepo: identityRepo,
		tokenRepo:    tokenRepo,
		provider:     provider,
		cacheSvc:     cacheSvc,
		events:       events,
		mailer:       mailer,
		logger:       logger,
	}
}

func (s *passwordService) Forgot(ctx context.Context, email, resetBaseURL string, meta models.RequestMeta) error {
	limited, err := s.cacheSvc.IsRateLimited(ctx, "forgot:"+meta.IPAddress, forgotRateMax, forgotRateWindow)
	if err != nil {
		s.logger.Warn("forgot-password rate limiter unavailable", zap.Error(err))
	} else if limited {
		return ErrTooManyRequests
	}

	ident, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Respond success without creating anything.
			return nil
		}
		return err
	}

	raw, hash, err := newResetToken()
	if err != nil {
		return err
	}

	token := &models.ResetToken{
		ID:         uuid.NewString(),
		IdentityID: ident.ID.String(),
		TokenHash:  hash,
		ExpiresAt:  time.Now().Add(resetTokenTTL),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return err
	}

	s.events.Record(ctx, &ident.ID, models.EventPasswordResetRequest, true, "", meta)

	go func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		resetURL := fmt.Sprintf("%s?token=%s", resetBaseURL, raw)
		if err := s.mailer.SendMail(mailCtx, mail.PasswordReset(ident.Email, resetURL)); err != nil {
			s.logger.Warn("reset email failed", zap.Error(err))
		}
	}()

	return nil
}

func (s *passwordService) Reset(ctx context.Context, rawToken, newPassword string, meta models.RequestMeta) error {
	hash := hashResetToken(rawToken)

	token, err := s.tokenRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if token.Used || time.Now().After(token.ExpiresAt) {
		return ErrInvalidResetToken
	}

	// Claim the token before touching the provider, so it is spent even if a
	// later step fails.
	claimed, err := s.tokenRepo.MarkUsed(ctx, hash)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrInvalidResetToken
	}

	identityID, err := uuid.Parse(token.IdentityID)
	if err != nil {
		return err
	}
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return err
	}

	if err := s.provider.UpdatePassword(ctx, ident.ProviderID, newPassword); err != nil {
		s.events.Record(ctx, &ident.ID, models.EventPasswordResetFailed, false, "provider update failed", meta)
		return err
	}

	s.mirrorHash(ctx, ident.ID, newPassword)
	s.events.Record(ctx, &ident.ID, models.EventPasswordReset, true, "", meta)
	return nil
}

// Change re-verifies the current password against the provider as a fresh
// login; session state is not trusted for this.
func (s *passwordService) Change(ctx context.Context, identityID uuid.UUID, currentPassword, newPassword string, meta models.RequestMeta) error {
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return err
	}

	if err := s.provider.VerifyPassword(ctx, ident.Email, currentPassword); err != nil {
		if errors.Is(err, identity.ErrBadCredentials) {
			s.events.Record(ctx, &ident.ID, models.EventPasswordChangeFailed, false, "current password rejected", meta)
			return ErrInvalidCredentials
		}
		return err
	}

	if err := s.provider.UpdatePassword(ctx, ident.ProviderID, newPassword); err != nil {
		return err
	}

	s.mirrorHash(ctx, ident.ID, newPassword)
	s.events.Record(ctx, &ident.ID, models.EventPasswordChanged, true, "", meta)
	return nil
}

// mirrorHash stores a local bcrypt hash of the new password. Failures are
// logged and swallowed; the provider already holds the credential.
func (s *passwordService) mirrorHash(ctx context.Context, identityID uuid.UUID, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Warn("password hash mirror failed", zap.Error(err))
		return
	}
	if err := s.identityRepo.SetPasswordHash(ctx, identityID, string(hash)); err != nil {
		s.logger.Warn("password hash mirror failed", zap.Error(err))
	}
}

func newResetToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
