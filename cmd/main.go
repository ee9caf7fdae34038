package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playtype/account-recovery-service/internal/application"
	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/infrastructure/cache"
	"github.com/playtype/account-recovery-service/internal/infrastructure/config"
	"github.com/playtype/account-recovery-service/internal/infrastructure/database"
	"github.com/playtype/account-recovery-service/internal/infrastructure/jwt"
	"github.com/playtype/account-recovery-service/internal/infrastructure/limiter"
	"github.com/playtype/account-recovery-service/internal/infrastructure/repository"
	"github.com/playtype/account-recovery-service/internal/infrastructure/secretstore"
	"github.com/playtype/account-recovery-service/internal/infrastructure/sms"
	httprouter "github.com/playtype/account-recovery-service/internal/interfaces/http"
	"github.com/playtype/account-recovery-service/internal/interfaces/http/handlers"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// @title Account Recovery Service API
// @version 1.0
// @description Phone verification, account recovery and session tokens
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server exited properly")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == config.EnvDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newStrategy(cfg *config.Config, logger *zap.Logger) (domain.JWTStrategy, error) {
	switch cfg.JWTSigningMethod {
	case "RS256":
		return jwt.NewLocalStrategy(&domain.LocalConfig{
			KeyPath:         cfg.JWTKeyPath,
			AccessDuration:  cfg.JWTAccessDuration,
			RefreshDuration: cfg.JWTRefreshDuration,
		}, logger)
	default:
		secret := cfg.JWTSecret
		if secret == "" {
			logger.Warn("JWT_SECRET is empty, using an insecure development secret")
			secret = "development-only-secret"
		}
		return jwt.NewHMACStrategy(&domain.HMACConfig{
			Secret:          []byte(secret),
			AccessDuration:  cfg.JWTAccessDuration,
			RefreshDuration: cfg.JWTRefreshDuration,
		})
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Create cache and database connections
	rdb, err := cache.NewRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	db, err := database.NewPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrationsDir != "" {
		if err := database.RunMigrations(cfg.MigrationsDir, database.DSN(cfg), logger); err != nil {
			return err
		}
	}

	store := secretstore.New(rdb.Client(), cfg.RedisNamespace)

	// Initialize services
	strategy, err := newStrategy(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize token strategy: %w", err)
	}
	tokens := jwt.NewTokenService(strategy, jwt.NewRedisBlacklist(store), logger)

	verification, err := application.NewVerificationService(store, application.VerificationConfig{
		CodeLength:       cfg.VerificationCodeLength,
		CodeTTL:          cfg.VerificationCodeTTL,
		FlagTTL:          cfg.VerificationFlagTTL,
		TokenTTL:         cfg.PasswordResetTTL,
		TokenBytes:       cfg.VerificationTokenBytes,
		TokenMaxAttempts: cfg.VerificationTokenMaxAttempts,
		MaxCodeFailures:  cfg.VerificationMaxFailures,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize verification: %w", err)
	}

	accounts := repository.NewAccountRepository(db, logger)
	smsClient := sms.NewClient(sms.Config{
		APIURL:  cfg.SMSAPIURL,
		APIKey:  cfg.SMSAPIKey,
		Sender:  cfg.SMSSender,
		DryRun:  cfg.SMSDryRun,
		Timeout: cfg.SMSTimeout,
	}, logger)

	recovery := application.NewRecoveryService(
		limiter.NewSMSLimiter(store, logger),
		verification,
		accounts,
		smsClient,
		application.RecoveryConfig{
			Windows:    cfg.RateWindows(),
			ResetTTL:   cfg.PasswordResetTTL,
			DebugCodes: cfg.DebugCodes && !cfg.IsProduction(),
		},
		logger,
	)
	session := application.NewSessionService(accounts, tokens, logger)

	// Create router
	router := httprouter.NewRouter(ctx, httprouter.Options{
		Recovery: application.InstrumentRecovery(recovery, logger),
		Session:  application.InstrumentSession(session, logger),
		Tokens:   tokens,
		Dependencies: []httprouter.Dependency{
			{Name: "redis", Pinger: rdb},
			{Name: "database", Pinger: db},
		},
		Cookies:    handlers.CookieConfig{Secure: cfg.IsProduction()},
		RefreshTTL: strategy.GetRefreshDuration(),
		RateLimit:  rate.Limit(cfg.HTTPRateLimit),
		RateBurst:  cfg.HTTPRateBurst,
		SwaggerDoc: "docs/swagger.json",
	}, logger)

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.Int("port", cfg.ServerPort), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
