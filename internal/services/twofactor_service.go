package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"planora/internal/caching"
	"planora/internal/mail"
	"planora/internal/models"
	"planora/internal/repositories"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	totpPeriod     = 30
	totpSkew       = 1 // accept codes one step either side of now
	verifyRateMax  = 10
	verifyRateSpan = 5 * time.Minute
)

// TwoFactorSetup is returned from Setup: the shared secret plus the otpauth
// URI an authenticator app can scan.
type TwoFactorSetup struct {
	Secret        string `json:"secret"`
	EnrollmentURI string `json:"enrollment_uri"`
}

// TwoFactorService drives the 2FA lifecycle:
//
//	Disabled -> Provisioning (secret stored, unconfirmed) -> Enabled -> Disabled
type TwoFactorService interface {
	Setup(ctx context.Context, identityID uuid.UUID, meta models.RequestMeta) (*TwoFactorSetup, error)
	// Enable confirms enrollment with a TOTP code and returns the one-time
	// plaintext recovery code batch.
	Enable(ctx context.Context, identityID uuid.UUID, code string, meta models.RequestMeta) ([]string, error)
	// VerifyLogin is the step-up path after a password login signalled that
	// 2FA is required. It accepts a TOTP code or a recovery code.
	VerifyLogin(ctx context.Context, email, code string, meta models.RequestMeta) (*LoginResult, error)
	Disable(ctx context.Context, identityID uuid.UUID, code string, meta models.RequestMeta) error
	// RegenerateRecoveryCodes requires a live TOTP code; recovery codes are
	// not accepted, otherwise one leaked code could mint a fresh batch.
	RegenerateRecoveryCodes(ctx context.Context, identityID uuid.UUID, code string, meta models.RequestMeta) ([]string, error)
}

type twoFactorService struct {
	identityRepo repositories.IdentityRepository
	codeRepo     repositories.RecoveryCodeRepository
	cacheSvc     caching.CacheService
	events       SecurityEventService
	mailer       mail.Mailer
	completeSvc  AuthService
	issuer       string
	logger       *zap.Logger
}

func NewTwoFactorService(
	identityRepo repositories.IdentityRepository,
	codeRepo repositories.RecoveryCodeRepository,
	cacheSvc caching.CacheService,
	events SecurityEventService,
	mailer mail.Mailer,
	completeSvc AuthService,
	issuer string,
	logger *zap.Logger,
) TwoFactorService {
	return &twoFactorService{
		identityRepo: identityRepo,
		codeRepo:     codeRepo,
		cacheSvc:     cacheSvc,
		events:       events,
		mailer:       mailer,
		completeSvc:  completeSvc,
		issuer:       issuer,
		logger:       logger,
	}
}

func (s *twoFactorService) Setup(ctx context.Context, identityID uuid.UUID, meta models.RequestMeta) (*TwoFactorSetup, error) {
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: ident.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err := s.identityRepo.SetTwoFactorSecret(ctx, identityID, key.Secret(), time.Now()); err != nil {
		return nil, err
	}

	s.events.Record(ctx, &identityID, models.EventTwoFactorSetup, true, "secret provisioned", meta)

	return &TwoFactorSetup{
		Secret:        key.Secret(),
		EnrollmentURI: key.URL(),
	}, nil
}

func (s *twoFactorService) Enable(ctx context.Context, identityID uuid.UUID, code string, meta models.RequestMeta) ([]string, error) {
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if ident.TwoFactorSecret == nil {
		return nil, ErrTwoFactorNotSetup
	}

	if !s.validateTOTP(*ident.TwoFactorSecret, code) {
		s.events.Record(ctx, &identityID, models.EventTwoFactorFailed, false, "enable confirmation failed", meta)
		return nil, ErrInvalidCode
	}

	if err := s.identityRepo.ConfirmTwoFactor(ctx, identityID, time.Now()); err != nil {
		return nil, err
	}

	codes, err := s.issueRecoveryCodes(ctx, identityID)
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, &identityID, models.EventTwoFactorEnabled, true, "", meta)
	go s.notifyChange(ident.Email, true)

	return codes, nil
}

func (s *twoFactorService) VerifyLogin(ctx context.Context, email, code string, meta models.RequestMeta) (*LoginResult, error) {
	limited, err := s.cacheSvc.IsRateLimited(ctx, "2fa:"+email, verifyRateMax, verifyRateSpan)
	if err != nil {
		s.logger.Warn("2fa rate limiter unavailable", zap.Error(err))
	} else if limited {
		return nil, ErrTooManyRequests
	}

	ident, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if !ident.TwoFactorEnabled || ident.TwoFactorSecret == nil {
		return nil, ErrTwoFactorNotEnabled
	}

	// Checked before factor verification so a deactivated account can never
	// burn a single-use recovery code.
	if !ident.Active {
		return nil, ErrIdentityInactive
	}

	ok, usedRecovery, err := s.verifyEitherFactor(ctx, ident, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.events.Record(ctx, &ident.ID, models.EventTwoFactorFailed, false, "step-up failed", meta)
		return nil, ErrInvalidCode
	}

	if usedRecovery {
		s.events.Record(ctx, &ident.ID, models.EventRecoveryCodeUsed, true, "", meta)
	}
	s.events.Record(ctx, &ident.ID, models.EventTwoFactorVerified, true, "", meta)

	return s.completeSvc.CompleteLogin(ctx, ident)
}

func (s *twoFactorService) Disable(ctx context.Context, identityID uuid.UUID, code string, meta models.RequestMeta) error {
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if !ident.TwoFactorEnabled || ident.TwoFactorSecret == nil {
		return ErrTwoFactorNotEnabled
	}

	ok, _, err := s.verifyEitherFactor(ctx, ident, code)
	if err != nil {
		return err
	}
	if !ok {
		s.events.Record(ctx, &identityID, models.EventTwoFactorFailed, false, "disable verification failed", meta)
		return ErrInvalidCode
	}

	if err := s.identityRepo.ClearTwoFactor(ctx, identityID); err != nil {
		return err
	}
	if err := s.codeRepo.DeleteAll(ctx, identityID); err != nil {
		return err
	}

	s.events.Record(ctx, &identityID, models.EventTwoFactorDisabled, true, "", meta)
	go s.notifyChange(ident.Email, false)
	return nil
}

func (s *twoFactorService) RegenerateRecoveryCodes(ctx context.Context, identityID uuid.UUID, code string, meta models.RequestMeta) ([]string, error) {
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if !ident.TwoFactorEnabled || ident.TwoFactorSecret == nil {
		return nil, ErrTwoFactorNotEnabled
	}

	// TOTP only here, no recovery codes.
	if !s.validateTOTP(*ident.TwoFactorSecret, code) {
		s.events.Record(ctx, &identityID, models.EventTwoFactorFailed, false, "regenerate verification failed", meta)
		return nil, ErrInvalidCode
	}

	codes, err := s.issueRecoveryCodes(ctx, identityID)
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, &identityID, models.EventRecoveryCodesRenewed, true, "", meta)
	return codes, nil
}

// verifyEitherFactor implements the dual path: a 6-digit numeric code is
// treated as TOTP, anything else as a recovery code. The recovery path
// claims the matched code atomically so it can never be spent twice.
func (s *twoFactorService) verifyEitherFactor(ctx context.Context, ident *models.Identity, code string) (ok bool, usedRecovery bool, err error) {
	if isNumericCode(code) {
		return s.validateTOTP(*ident.TwoFactorSecret, code), false, nil
	}

	codes, err := s.codeRepo.ListUnused(ctx, ident.ID)
	if err != nil {
		return false, false, err
	}
	for _, rc := range codes {
		if bcrypt.CompareHashAndPassword([]byte(rc.CodeHash), []byte(code)) == nil {
			claimed, err := s.codeRepo.Consume(ctx, rc.ID)
			if err != nil {
				return false, false, err
			}
			return claimed, claimed, nil
		}
	}
	return false, false, nil
}

func (s *twoFactorService) validateTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// issueRecoveryCodes atomically replaces the identity's batch and returns
// the plaintext codes. This is the only time they exist outside bcrypt.
func (s *twoFactorService) issueRecoveryCodes(ctx context.Context, identityID uuid.UUID) ([]string, error) {
	codes := make([]string, 0, models.RecoveryCodeCount)
	hashes := make([]string, 0, models.RecoveryCodeCount)
	for i := 0; i < models.RecoveryCodeCount; i++ {
		code, err := newRecoveryCode()
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, string(hash))
	}

	if err := s.codeRepo.ReplaceAll(ctx, identityID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// newRecoveryCode produces codes like "9f3a-c01d": two groups of four hex
// characters. Being non-numeric, they cannot be mistaken for TOTP codes.
func newRecoveryCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := hex.EncodeToString(b)
	return s[:4] + "-" + s[4:], nil
}

func isNumericCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *twoFactorService) notifyChange(email string, enabled bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.mailer.SendMail(ctx, mail.TwoFactorChanged(email, enabled)); err != nil {
		s.logger.Warn("2fa change email failed", zap.Error(err))
	}
}
