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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/handler"
	"github.com/noah-isme/capdev-portal-api/internal/migrations"
	"github.com/noah-isme/capdev-portal-api/internal/repository"
	"github.com/noah-isme/capdev-portal-api/internal/service"
	"github.com/noah-isme/capdev-portal-api/pkg/cache"
	"github.com/noah-isme/capdev-portal-api/pkg/config"
	"github.com/noah-isme/capdev-portal-api/pkg/database"
	"github.com/noah-isme/capdev-portal-api/pkg/jobs"
	"github.com/noah-isme/capdev-portal-api/pkg/logger"
	"github.com/noah-isme/capdev-portal-api/pkg/mailer"
	"github.com/noah-isme/capdev-portal-api/pkg/storage"
)

// @title Capacity Development Portal API
// @version 1.0.0
// @description Matchmaking of capacity development requests with partner offers.
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Migrations.AutoMigrate {
		runner, err := migrations.NewRunner(db.DB, logr)
		if err != nil {
			logr.Fatal("failed to prepare migrations", zap.Error(err))
		}
		if err := runner.Up(); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	cacheSvc, redisClient := newCacheService(cfg, metrics, logr)
	readiness := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisClient != nil {
		defer redisClient.Close()
		readiness["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	users := repository.NewUserRepository(db)
	requests := repository.NewRequestRepository(db)
	offers := repository.NewOfferRepository(db)
	opportunities := repository.NewOpportunityRepository(db)
	subscriptions := repository.NewSubscriptionRepository(db)
	preferences := repository.NewPreferenceRepository(db)

	templates, err := service.NewEmailTemplateService()
	if err != nil {
		logr.Fatal("failed to parse email templates", zap.Error(err))
	}

	var notifier *service.NotificationService
	queue := jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		return notifier.Deliver(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnExhausted: func(job jobs.Job, err error) {
			logr.Error("notification dropped", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
		},
	})
	notifier = service.NewNotificationService(service.NotificationDeps{
		Requests:      requests,
		Offers:        offers,
		Opportunities: opportunities,
		Subscriptions: subscriptions,
		Users:         users,
		Matcher:       service.NewMatchingService(preferences, metrics, logr),
		Templates:     templates,
		Queue:         queue,
		Sender:        newSender(cfg, logr),
		Metrics:       metrics,
		PortalURL:     cfg.Mail.PortalURL,
	}, logr)

	events := service.NewEventBus(logr)
	events.Subscribe(notifier)
	queue.Start(ctx)

	files, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare document storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	svc := services{
		auth: service.NewAuthService(users, repository.NewSessionRepository(db), users, validate, logr, service.AuthConfig{
			AccessTokenSecret:  cfg.JWT.Secret,
			AccessTokenExpiry:  cfg.JWT.Expiration,
			RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
			Issuer:             cfg.JWT.Issuer,
			Audience:           cfg.JWT.Audience,
			SingleSession:      cfg.JWT.SingleSession,
		}),
		requests: service.NewRequestService(requests, users, events, cacheSvc, validate, logr),
		lifecycle: service.NewLifecycleService(repository.NewLifecycleRepository(db), offers, users, events, validate, logr,
			service.WithLifecycleMetrics(metrics),
			service.WithLifecycleCache(cacheSvc),
			service.WithLifecycleFiles(files),
			service.WithLifecyclePartners(users),
		),
		offers:        service.NewOfferService(offers, requests, logr),
		statuses:      service.NewStatusService(repository.NewStatusRepository(db), cacheSvc, logr),
		subscriptions: service.NewSubscriptionService(subscriptions, requests, logr),
		preferences:   service.NewPreferenceService(preferences, validate, logr),
		opportunities: service.NewOpportunityService(opportunities, users, events, validate, logr),
		documents: service.NewDocumentService(repository.NewDocumentRepository(db), requests, offers, files, signer, users, logr, service.DocumentServiceConfig{
			MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Documents.AllowedMIMEs,
			APIPrefix:    cfg.APIPrefix,
		}),
		exports: service.NewExportService(requests, users, service.ExportConfig{
			Enabled: cfg.Exports.Enabled,
			MaxRows: cfg.Exports.MaxRows,
		}, logr, nil, nil),
		metrics:   metrics,
		audit:     users,
		readiness: readiness,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	queue.Stop()
}

func newCacheService(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, *redis.Client) {
	if !cfg.Cache.Enabled {
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false), nil
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false), nil
	}
	return service.NewCacheService(repository.NewCacheRepository(client, logr), metrics, cfg.Cache.TTL, logr, true), client
}

func newSender(cfg *config.Config, logr *zap.Logger) mailer.Sender {
	if !cfg.Mail.Enabled {
		return mailer.NewLogSender(logr)
	}
	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
	})
	if err != nil {
		logr.Warn("smtp misconfigured, emails will only be logged", zap.Error(err))
		return mailer.NewLogSender(logr)
	}
	return sender
}
