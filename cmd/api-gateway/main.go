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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/acadops-api/api/swagger"
	"github.com/noah-isme/acadops-api/internal/handler"
	"github.com/noah-isme/acadops-api/internal/repository"
	"github.com/noah-isme/acadops-api/internal/service"
	"github.com/noah-isme/acadops-api/pkg/cache"
	"github.com/noah-isme/acadops-api/pkg/config"
	"github.com/noah-isme/acadops-api/pkg/database"
	"github.com/noah-isme/acadops-api/pkg/jobs"
	"github.com/noah-isme/acadops-api/pkg/logger"
	"github.com/noah-isme/acadops-api/pkg/storage"
)

// @title AcadOps Scheduling API
// @version 1.0.0
// @description Class scheduling assignment pipeline for the academic operations console
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, cache disabled and wizard state kept in memory", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	draftRepo := repository.NewDraftRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	}

	locker := service.NewDraftLocker()
	locker.SetMetrics(metrics)

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	patternSvc := service.NewPatternService(draftRepo, sessionRepo, slotRepo, resourceRepo, db, auditRepo, locker, cacheSvc, metrics, validate, logr, service.PatternConfig{
		DurationTolerance: cfg.Scheduling.DurationToleranceHours,
		CatalogCacheTTL:   cfg.Cache.TTL,
	})
	resolutionSvc := service.NewConflictResolutionService(patternSvc, metrics, logr, cfg.Scheduling.ConflictSessionTTL)
	draftSvc := service.NewDraftService(draftRepo, sessionRepo, db, auditRepo, locker, resolutionSvc, validate, logr)
	teacherSvc := service.NewTeacherMatchingService(draftRepo, sessionRepo, teacherRepo, slotRepo, db, auditRepo, locker, logr, cfg.Scheduling.TeacherAttemptTTL)
	readinessSvc := service.NewReadinessService(draftRepo, sessionRepo, resolutionSvc, db, auditRepo, locker, metrics, validate, logr)

	// Without redis the state store keeps wizard positions in process memory.
	wizardSvc := service.NewWizardService(draftSvc, patternSvc, resolutionSvc, readinessSvc, repository.NewWizardStateRepository(redisClient), validate, logr, cfg.Scheduling.WizardStateTTL)

	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		queue, exportSvc, err := wireExports(ctx, cfg, logr, db, draftSvc, draftRepo, slotRepo, resourceRepo, teacherRepo, auditRepo, metrics, validate)
		if err != nil {
			logr.Sugar().Fatalw("failed to initialise exports", "error", err)
		}
		defer queue.Stop()
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := newRouter(cfg, logr, routerDeps{
		auth:       authSvc,
		metrics:    metrics,
		audit:      auditRepo,
		drafts:     handler.NewClassDraftHandler(draftSvc, auditRepo),
		patterns:   handler.NewPatternHandler(patternSvc, resolutionSvc),
		conflicts:  handler.NewConflictHandler(resolutionSvc),
		teachers:   handler.NewTeacherAssignmentHandler(teacherSvc),
		readiness:  handler.NewReadinessHandler(readinessSvc),
		wizard:     handler.NewWizardHandler(wizardSvc),
		exports:    exportHandler,
		health:     handler.NewMetricsHandler(metrics, checks),
		authLookup: handler.NewAuthHandler(),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}

func wireExports(
	ctx context.Context,
	cfg *config.Config,
	logr *zap.Logger,
	db *sqlx.DB,
	drafts *service.DraftService,
	draftRepo *repository.DraftRepository,
	slots *repository.TimeSlotRepository,
	resources *repository.ResourceRepository,
	teachers *repository.TeacherRepository,
	audit *repository.AuditRepository,
	metrics *service.MetricsService,
	validate *validator.Validate,
) (*jobs.Queue, *service.ScheduleExportService, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(drafts, slots, resources, teachers, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	jobRepo := repository.NewScheduleExportRepository(db)
	worker := service.NewExportWorker(jobRepo, exporter, metrics, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("schedule-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		DeadLetter: func(ctx context.Context, job jobs.Job, err error) {
			logr.Sugar().Errorw("export job exhausted retries", "job_id", job.ID, "attempt", job.Attempt, "error", err)
		},
	})
	queue.Start(ctx)

	exportSvc := service.NewScheduleExportService(jobRepo, draftRepo, queue, exporter, audit, validate, logr, service.ScheduleExportServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	exportSvc.RecoverPendingJobs(ctx)
	exportSvc.StartCleanup(ctx)
	return queue, exportSvc, nil
}
