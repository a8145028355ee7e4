package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/goodpass/backoffice/internal/api"
	"github.com/goodpass/backoffice/internal/auth"
	"github.com/goodpass/backoffice/internal/cache"
	"github.com/goodpass/backoffice/internal/config"
	"github.com/goodpass/backoffice/internal/crypto"
	"github.com/goodpass/backoffice/internal/events"
	"github.com/goodpass/backoffice/internal/importer"
	"github.com/goodpass/backoffice/internal/repository/elasticsearch"
	"github.com/goodpass/backoffice/internal/repository/postgres"
	"github.com/goodpass/backoffice/internal/repository/s3"
	"github.com/goodpass/backoffice/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting goodpass back-office service",
		zap.Int("port", cfg.Server.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	encryptor, err := crypto.NewFieldEncryptor(
		cfg.Encryption.EncryptionKeysBase64,
		cfg.Encryption.CurrentKeyVersion,
		cfg.Encryption.ActivityHMACSecret,
	)
	if err != nil {
		logger.Fatal("failed to initialize encryptor", zap.Error(err))
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	kycRepo := postgres.NewKYCRepository(pool, encryptor)
	reportRepo := postgres.NewReportRepository(pool)
	activityRepo := postgres.NewActivityRepository(pool)
	announcementRepo := postgres.NewAnnouncementRepository(pool)

	// Secondary stores degrade gracefully when unavailable.
	var pendingCache service.PendingCache
	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, pending-review caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		pendingCache = cache.NewPendingKYCCache(redisClient, cfg.Redis.DefaultTTL)
	}

	var activityIndex *elasticsearch.ActivityIndex
	activityIndex, err = elasticsearch.NewActivityIndex(cfg.Elasticsearch)
	if err != nil {
		logger.Warn("elasticsearch unavailable, activity search disabled", zap.Error(err))
		activityIndex = nil
	}

	documentStore, err := s3.NewDocumentStore(ctx, cfg.S3, cfg.Importer.SignedURLTTL)
	if err != nil {
		logger.Fatal("failed to initialize document store", zap.Error(err))
	}

	var publisher service.ActivityEventPublisher
	kafkaPublisher, err := events.NewActivityPublisher(cfg.Kafka)
	if err != nil {
		logger.Warn("kafka unavailable, activity streaming disabled", zap.Error(err))
	} else {
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	activityService := service.NewActivityService(
		activityRepo, activityIndex, documentStore, publisher, encryptor, logger)
	kycService := service.NewKYCService(
		kycRepo, documentStore, pendingCache, activityService, logger)
	reportService := service.NewReportService(reportRepo)
	importService := service.NewImportService(
		importer.NewHeuristicAdvisor(cfg.Importer.FuzzyThreshold),
		importer.NewRuleEngine(),
		reportRepo,
		documentStore,
		activityService,
		cfg.Importer.AutoAcceptConfidence,
		logger,
	)
	announcementService := service.NewAnnouncementService(announcementRepo, activityService, logger)

	// Nightly archival of expired activity events.
	retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
	scheduler := cron.New()
	if cfg.Archive.Enabled {
		_, err := scheduler.AddFunc(cfg.Archive.Schedule, func() {
			archiveCtx, archiveCancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer archiveCancel()
			if err := activityService.ArchiveExpired(archiveCtx, retention); err != nil {
				logger.Error("activity archival failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("invalid archive schedule", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	jwtKey, err := loadJWTPublicKey(cfg.Auth.JWTPublicKeyPath)
	if err != nil {
		logger.Fatal("failed to load JWT public key", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewRequestValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    jwtKey,
		SigningMethod: "RS256",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return &jwt.MapClaims{}
		},
	}))
	apiGroup.Use(auth.ResolveIdentity())

	viewerGroup := apiGroup.Group("", auth.RequireRole(auth.RoleViewer))
	moderatorGroup := apiGroup.Group("", auth.RequireRole(auth.RoleModerator))
	adminGroup := apiGroup.Group("", auth.RequireRole(auth.RoleAdmin))
	superadminGroup := apiGroup.Group("", auth.RequireRole(auth.RoleSuperAdmin))

	api.NewReportHandler(reportService, logger).RegisterRoutes(viewerGroup)
	api.NewKYCHandler(kycService, logger).RegisterRoutes(viewerGroup, moderatorGroup)
	api.NewImportHandler(importService, logger).RegisterRoutes(adminGroup)
	api.NewAnnouncementHandler(announcementService, logger).RegisterRoutes(viewerGroup, adminGroup)
	api.NewActivityHandler(activityService, retention, logger).RegisterRoutes(adminGroup, superadminGroup)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil {
			logger.Info("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level = level
	if cfg.OutputPath != "" {
		zapCfg.OutputPaths = []string{cfg.OutputPath}
	}
	return zapCfg.Build()
}

func loadJWTPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}
	return key, nil
}
