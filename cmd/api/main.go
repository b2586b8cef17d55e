package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/handler"
	"github.com/noah-isme/library-catalog-api/internal/repository"
	"github.com/noah-isme/library-catalog-api/internal/service"
	"github.com/noah-isme/library-catalog-api/pkg/cache"
	"github.com/noah-isme/library-catalog-api/pkg/config"
	"github.com/noah-isme/library-catalog-api/pkg/database"
	"github.com/noah-isme/library-catalog-api/pkg/logger"
)

// @title Library Catalog API
// @version 1.0.0
// @description Book catalog, checkout ledger and staff rental reporting
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.NewMigrator(db).Up(context.Background())
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Ints("versions", applied))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis only backs the listing cache and the login throttle; both fail open.
		logr.Warn("redis unavailable, continuing without it", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	credentials := service.NewCredentialService()

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	bookRepo := repository.NewBookRepository(db)
	checkoutRepo := repository.NewCheckoutRepository(db)

	sessionSvc := service.NewSessionService(sessionRepo, logr, metrics, service.SessionConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	})
	authConfig := service.AuthConfig{
		StaffKeyword:     cfg.Auth.StaffKeyword,
		LoginMaxAttempts: cfg.Auth.LoginMaxAttempts,
		LoginLockout:     cfg.Auth.LoginLockout,
	}

	var (
		cacheSvc *service.CacheService
		auth     *service.AuthService
	)
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Books.CacheTTL, logr, cfg.Books.CacheEnabled)
		auth = service.NewAuthService(userRepo, sessionSvc, credentials, repository.NewLoginAttemptRepository(redisClient), validate, logr, metrics, authConfig)
	} else {
		auth = service.NewAuthService(userRepo, sessionSvc, credentials, nil, validate, logr, metrics, authConfig)
	}

	catalog := service.NewCatalogService(bookRepo, cacheSvc, validate, logr)
	ledger := service.NewCheckoutService(checkoutRepo, catalog, logr, metrics)
	importer := service.NewImportService(catalog, service.NewGoogleSheetsReader(), logr, service.ImportConfig{
		APIKey:       cfg.Sheets.APIKey,
		DefaultRange: cfg.Sheets.DefaultRange,
	})
	users := service.NewUserService(userRepo, credentials, validate, logr)

	router := handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(auth),
		Books:   handler.NewBookHandler(catalog, ledger, importer),
		Rentals: handler.NewRentalHandler(ledger),
		Users:   handler.NewUserHandler(users),
		Metrics: handler.NewMetricsHandler(metrics, db),
	}, sessionSvc, metrics, logr, handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		StoreTimeout:   cfg.StoreTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Docs:           cfg.Env != config.EnvProduction,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go service.NewSessionReaper(sessionSvc, cfg.Session.PurgeInterval, cfg.StoreTimeout, logr).Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
