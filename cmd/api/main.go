package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/background"
	"github.com/BradenHooton/tipoca/internal/config"
	"github.com/BradenHooton/tipoca/internal/database"
	"github.com/BradenHooton/tipoca/internal/email"
	"github.com/BradenHooton/tipoca/internal/geo"
	"github.com/BradenHooton/tipoca/internal/handlers"
	middlewareCustom "github.com/BradenHooton/tipoca/internal/middleware"
	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/BradenHooton/tipoca/internal/repositories"
	"github.com/BradenHooton/tipoca/internal/routes"
	"github.com/BradenHooton/tipoca/internal/services"
	pkgauth "github.com/BradenHooton/tipoca/pkg/auth"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
	pkglogger "github.com/BradenHooton/tipoca/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: pkglogger.ParseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("session_store", cfg.Session.Store),
		slog.String("email_provider", cfg.Email.Provider))

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Initialize database
	db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(startupCtx); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	trackingRepo := repositories.NewTrackingRepository(db)
	postRepo := repositories.NewPostRepository(db)

	healthChecks := map[string]handlers.HealthChecker{"database": db}

	var sessionStore interface {
		services.SessionTokenStore
		auth.SessionStore
	}
	var sessionPruner background.SessionPruner
	switch cfg.Session.Store {
	case "redis":
		redisClient, err := database.NewRedisClient(startupCtx, cfg.Session.RedisURL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		redisStore := repositories.NewRedisSessionStore(redisClient)
		sessionStore = redisStore
		sessionPruner = redisStore
		healthChecks["redis"] = redisStore
	default:
		sessionStore = repositories.NewSessionTokenRepository(db)
	}

	// Email delivery is queued so requests never wait on the provider
	sender, err := email.NewSender(startupCtx, cfg.Email, logger)
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}
	dispatcher := email.NewDispatcher(sender, email.DispatcherConfig{
		QueueSize:     cfg.Email.QueueSize,
		Workers:       cfg.Email.Workers,
		RatePerSecond: cfg.Email.RatePerSecond,
	}, logger)
	dispatcher.Start()

	notifier, err := email.NewNotifier(dispatcher, cfg.Email.PlatformName, cfg.Email.DomainName)
	if err != nil {
		logger.Error("failed to load email templates", slog.Any("error", err))
		os.Exit(1)
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret)
	hasher := pkgauth.NewHasher(pkgauth.DefaultCost)
	geoClient := geo.NewClient(cfg.Geo, cfg.IsProduction())

	trackingService := services.NewTrackingService(trackingRepo, geoClient, logger)
	authService := services.NewAuthService(accountRepo, sessionStore, trackingService, hasher, codec, notifier, cfg.Auth.MaxFailedLogins, logger, auditLogger)
	resetService := services.NewPasswordResetService(accountRepo, hasher, codec, notifier, logger, auditLogger)
	userService := services.NewUserService(accountRepo, profileRepo, sessionStore, hasher, logger, auditLogger)
	adminService := services.NewAdminService(accountRepo, roleRepo, sessionStore, logger, auditLogger)
	postService := services.NewPostService(postRepo, logger)

	// Initialize handlers
	failureDelay := auth.NewFailureDelay(cfg.Auth.FailureDelayBaseMs, cfg.Auth.FailureDelayRandomMs)
	authHandler := handlers.NewAuthHandler(authService, resetService, ipConfig, failureDelay, !cfg.IsProduction())
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(adminService)
	postHandler := handlers.NewPostHandler(postService)
	healthHandler := handlers.NewHealthHandler(healthChecks)

	// Bootstrap first admin account if configured
	if err := ensureAdminUser(startupCtx, cfg.Auth, accountRepo, hasher, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Production: cfg.IsProduction()}))
	router.Use(middlewareCustom.CORS(cfg.Server.AllowedOrigins))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, routes.Dependencies{
		Auth:                   authHandler,
		Users:                  userHandler,
		Admin:                  adminHandler,
		Posts:                  postHandler,
		Health:                 healthHandler,
		Codec:                  codec,
		Sessions:               sessionStore,
		Accounts:               accountRepo,
		Permissions:            roleRepo,
		IPConfig:               ipConfig,
		AuthRateLimitPerMinute: cfg.Server.AuthRateLimitPerMinute,
		APIRateLimit:           cfg.Server.APIRateLimit,
		APIRateLimitWindow:     cfg.Server.APIRateLimitWindow,
		Logger:                 logger,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start maintenance jobs. Postgres sessions cannot dangle, so only the
	// Redis index needs pruning.
	var cleanupManager *background.CleanupManager
	if sessionPruner != nil {
		cleanupManager, err = background.NewCleanupManager(sessionPruner, cfg.Jobs.CleanupSchedule, logger)
		if err != nil {
			logger.Error("failed to schedule cleanup jobs", slog.Any("error", err))
			os.Exit(1)
		}
		cleanupManager.Start()
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	if cleanupManager != nil {
		cleanupManager.Stop(shutdownCtx)
	}

	// Drain queued emails after the last request could have enqueued one
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn("email queue not fully drained", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first Administrator if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, cfg config.AuthConfig, accounts *repositories.AccountRepository, hasher *pkgauth.Hasher, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := accounts.FindByEmail(ctx, models.NormalizeEmail(cfg.AdminEmail))
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if err := pkgauth.ValidatePassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.Account{Email: cfg.AdminEmail, PasswordHash: hash}
	if _, err := accounts.Create(ctx, admin, models.RoleAdministrator); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created", slog.String("email", pkglogger.SanitizedEmail(admin.Email)))
	return nil
}
