package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"planora/internal/caching"
	"planora/internal/config"
	"planora/internal/handlers"
	"planora/internal/identity"
	"planora/internal/jobs/background"
	"planora/internal/mail"
	"planora/internal/middleware"
	"planora/internal/models"
	"planora/internal/repositories"
	"planora/internal/services"
	"planora/pkg/database"
)

// RequestValidator adapts go-playground/validator to echo's Validator interface.
type RequestValidator struct {
	validate *validator.Validate
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected")

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	provider, err := identity.NewHTTPProvider(cfg.ProviderURL, cfg.ProviderServiceKey, cfg.ProviderJWKSURL)
	if err != nil {
		logger.Fatal("identity provider init failed", zap.Error(err))
	}

	mailer := mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase, cfg.MailFrom)

	// Repositories
	identityRepo := repositories.NewIdentityRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	membershipRepo := repositories.NewMembershipRepo(pool)
	invitationRepo := repositories.NewInvitationRepo(pool)
	recoveryCodeRepo := repositories.NewRecoveryCodeRepo(pool)
	resetTokenRepo := repositories.NewResetTokenRepo(pool)
	securityEventRepo := repositories.NewSecurityEventRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)

	// Services
	eventSvc := services.NewSecurityEventService(securityEventRepo, logger)
	tenantSvc := services.NewTenantService(tenantRepo, membershipRepo, cacheSvc)
	tokenSvc := services.NewTokenService(identityRepo, membershipRepo, tenantRepo, cfg.JWTSecret, cfg.TokenTTL)
	subscriptionSvc := services.NewSubscriptionService(subscriptionRepo)
	authSvc := services.NewAuthService(identityRepo, provider, tenantSvc, tokenSvc, eventSvc,
		services.LockoutPolicy{Threshold: cfg.LockoutThreshold, Window: cfg.LockoutWindow}, logger)
	registrationSvc := services.NewRegistrationService(identityRepo, invitationRepo, provider,
		tenantSvc, tokenSvc, subscriptionSvc, eventSvc, mailer, logger)
	twoFactorSvc := services.NewTwoFactorService(identityRepo, recoveryCodeRepo, cacheSvc,
		eventSvc, mailer, authSvc, cfg.TOTPIssuer, logger)
	passwordSvc := services.NewPasswordService(identityRepo, resetTokenRepo, provider,
		cacheSvc, eventSvc, mailer, logger)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(registrationSvc, authSvc, tokenSvc, tenantSvc, eventSvc)
	twoFactorHandlers := handlers.NewTwoFactorHandlers(twoFactorSvc)
	passwordHandlers := handlers.NewPasswordHandlers(passwordSvc, cfg.ResetBaseURL)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(subscriptionSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = &RequestValidator{validate: validator.New()}

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestID())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandlers.Register)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/2fa/verify", twoFactorHandlers.Verify)
	auth.POST("/forgot-password", passwordHandlers.Forgot)
	auth.POST("/reset-password", passwordHandlers.Reset)

	// Protected routes
	protected := v1.Group("/auth")
	protected.Use(echojwt.WithConfig(middleware.JWTConfig(cfg.JWTSecret)))
	protected.Use(middleware.HydrateClaims(identityRepo))

	protected.GET("/me", authHandlers.Me)
	protected.PATCH("/profile", authHandlers.UpdateProfile)
	protected.DELETE("/profile", authHandlers.Deactivate)
	protected.POST("/switch-tenant", authHandlers.SwitchTenant)
	protected.GET("/security-events", authHandlers.SecurityEvents)
	protected.POST("/change-password", passwordHandlers.Change)

	protected.POST("/2fa/setup", twoFactorHandlers.Setup)
	protected.POST("/2fa/enable", twoFactorHandlers.Enable)
	protected.POST("/2fa/disable", twoFactorHandlers.Disable)
	protected.POST("/2fa/recovery-codes", twoFactorHandlers.RegenerateRecoveryCodes)

	// Tenant-scoped routes
	tenant := v1.Group("/tenant")
	tenant.Use(echojwt.WithConfig(middleware.JWTConfig(cfg.JWTSecret)))
	tenant.Use(middleware.HydrateClaims(identityRepo))
	tenant.GET("/plans", subscriptionHandlers.ListPlans)
	tenant.GET("/subscription", subscriptionHandlers.GetSubscription, middleware.RequireRole(models.RoleAdmin))

	// Background housekeeping
	scheduler, err := background.NewJobScheduler(resetTokenRepo, invitationRepo, securityEventRepo, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("scheduler shutdown failed", zap.Error(err))
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		logger.Info("server starting", zap.String("addr", addr), zap.String("environment", cfg.Environment))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
