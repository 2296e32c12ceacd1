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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/filmhub/filmhub-api/api/swagger"
	"github.com/filmhub/filmhub-api/internal/handler"
	"github.com/filmhub/filmhub-api/internal/repository"
	"github.com/filmhub/filmhub-api/internal/service"
	"github.com/filmhub/filmhub-api/pkg/cache"
	"github.com/filmhub/filmhub-api/pkg/config"
	"github.com/filmhub/filmhub-api/pkg/database"
	"github.com/filmhub/filmhub-api/pkg/jobs"
	"github.com/filmhub/filmhub-api/pkg/logger"
	"github.com/filmhub/filmhub-api/pkg/storage"
)

// @title FilmHub API
// @version 1.0.0
// @description Film review platform with an edit-request workflow
// @BasePath /api
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.MigrationsDir != "" {
		if err := database.Migrate(db, cfg.Database.MigrationsDir); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	userRepo := repository.NewUserRepository(db)
	filmRepo := repository.NewFilmRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	editRequestRepo := repository.NewEditRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	exportRepo := repository.NewExportRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	authSvc := service.NewAuthService(userRepo, auditRepo, cfg.JWT, logr)
	userSvc := service.NewUserService(userRepo, logr)
	filmSvc := newFilmService(cfg, filmRepo, cacheRepo, logr, metricsSvc)
	reviewSvc := service.NewReviewService(reviewRepo, filmRepo, userRepo, logr, cfg.Pagination.PageSize)
	editRequestSvc := service.NewEditRequestService(
		editRequestRepo, reviewRepo, filmRepo, auditRepo, logr, cfg.Pagination.PageSize,
		service.WithSweepObserver(metricsSvc),
	)

	exportSvc, exportQueue, err := buildExportPipeline(cfg, exportRepo, filmRepo, reviewRepo, logr, metricsSvc)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export pipeline", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
	}
	if exportSvc != nil && cfg.Exports.CleanupInterval > 0 {
		go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:       cfg,
		Logger:       logr,
		Auth:         authSvc,
		Users:        userSvc,
		Films:        filmSvc,
		Reviews:      reviewSvc,
		EditRequests: editRequestSvc,
		Exports:      exportSvc,
		Metrics:      metricsSvc,
		Ready:        func() error { return db.Ping() },
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func newFilmService(cfg *config.Config, repo *repository.FilmRepository, cacheRepo *repository.CacheRepository, logr *zap.Logger, metricsSvc *service.MetricsService) *service.FilmService {
	observe := service.WithCacheObserver(metricsSvc)
	if cacheRepo == nil {
		return service.NewFilmService(repo, nil, logr, cfg.Pagination.PageSize, cfg.Cache.TTL, observe)
	}
	return service.NewFilmService(repo, cacheRepo, logr, cfg.Pagination.PageSize, cfg.Cache.TTL, observe)
}

func buildExportPipeline(cfg *config.Config, exportRepo *repository.ExportRepository, filmRepo *repository.FilmRepository, reviewRepo *repository.ReviewRepository, logr *zap.Logger, metricsSvc *service.MetricsService) (*service.ExportService, *jobs.Queue, error) {
	if !cfg.Exports.Enabled {
		return nil, nil, nil
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	var queue *jobs.Queue
	exportSvc := service.NewExportService(exportRepo, filmRepo, reviewRepo, store, signer, enqueuerFunc(func(job jobs.Job) error {
		return queue.Enqueue(job)
	}), logr, service.WithExportObserver(metricsSvc))

	queue = jobs.NewQueue("review-exports", exportSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	return exportSvc, queue, nil
}

// enqueuerFunc adapts a closure to the export service's queue dependency.
type enqueuerFunc func(jobs.Job) error

func (f enqueuerFunc) Enqueue(job jobs.Job) error { return f(job) }

func runExportCleanup(ctx context.Context, svc *service.ExportService, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Cleanup(ctx, retention)
		}
	}
}
