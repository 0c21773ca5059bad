package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusctl/edt-api/api/swagger"
	"github.com/campusctl/edt-api/internal/handler"
	"github.com/campusctl/edt-api/internal/middleware"
	"github.com/campusctl/edt-api/internal/repository"
	"github.com/campusctl/edt-api/internal/service"
	"github.com/campusctl/edt-api/pkg/cache"
	"github.com/campusctl/edt-api/pkg/config"
	"github.com/campusctl/edt-api/pkg/database"
	"github.com/campusctl/edt-api/pkg/jobs"
	"github.com/campusctl/edt-api/pkg/logger"
	corsmiddleware "github.com/campusctl/edt-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusctl/edt-api/pkg/middleware/requestid"
	"github.com/campusctl/edt-api/pkg/storage"
)

// @title EDT API
// @version 1.0.0
// @description Occupancy scheduling and conflict detection for school timetables
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Redis is optional: with no cache the listing endpoints read straight
	// from postgres.
	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, redisErr := cache.NewRedis(ctx, cfg.Redis)
		if redisErr != nil {
			logr.Sugar().Warnw("redis unavailable, listing cache disabled", "error", redisErr)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	}

	occupancyRepo := repository.NewOccupancyRepository(db)
	feedRepo := repository.NewChangeFeedRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	exportRepo := repository.NewExportRepository(db)

	feedSvc := service.NewChangeFeedService(feedRepo, metrics, logr, service.ChangeFeedServiceConfig{
		DefaultLimit:  cfg.Feed.DefaultLimit,
		MaxLimit:      cfg.Feed.MaxLimit,
		Retention:     cfg.Feed.Retention,
		PruneInterval: cfg.Feed.PruneInterval,
	})

	occupancySvc := service.NewOccupancyService(occupancyRepo, feedRepo, directoryRepo, nil, nil, cacheSvc, metrics, feedSvc, validate, logr)
	if err := occupancySvc.WarmUp(ctx); err != nil {
		logr.Sugar().Fatalw("failed to warm occupancy index", "error", err)
	}

	querySvc := service.NewScheduleQueryService(occupancyRepo, directoryRepo, cacheSvc, logr)

	calendarSvc := service.NewCalendarService(querySvc, directoryRepo, validate, logr, service.CalendarServiceConfig{
		APIPrefix:   cfg.APIPrefix,
		TokenSecret: cfg.Calendar.TokenSecret,
		TokenTTL:    cfg.Calendar.TokenTTL,
	})

	var exportJobSvc *service.ExportJobService
	if cfg.Exports.Enabled {
		store, storeErr := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if storeErr != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", storeErr)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(occupancyRepo, directoryRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewExportWorker(exportRepo, exportSvc, cfg.Exports.WorkerRetries, metrics, logr)
		queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		exportJobSvc = service.NewExportJobService(exportRepo, directoryRepo, queue, exportSvc, validate, metrics, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	feedSvc.StartRetention(ctx)

	occupancyHandler := handler.NewOccupancyHandler(occupancySvc, querySvc)
	scheduleHandler := handler.NewScheduleHandler(querySvc)
	feedHandler := handler.NewChangeFeedHandler(feedSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		}, metrics))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/subjects/:id/occupancies", occupancyHandler.CreateForSubject)
		api.POST("/subjects/:id/groups/:number/occupancies", occupancyHandler.CreateForGroup)
		api.GET("/subjects/:id/occupancies", scheduleHandler.ForSubject)
		api.GET("/subjects/:id/groups/:number/occupancies", scheduleHandler.ForGroup)

		api.GET("/occupancies", occupancyHandler.List)
		api.GET("/occupancies/daily", occupancyHandler.Daily)
		api.GET("/occupancies/:id", occupancyHandler.Get)
		api.PUT("/occupancies/:id", occupancyHandler.Update)
		api.DELETE("/occupancies/:id", occupancyHandler.Delete)

		api.GET("/teachers/:id/occupancies", scheduleHandler.ForTeacher)
		api.GET("/teachers/:id/service", scheduleHandler.TeacherService)
		api.GET("/classrooms/:id/occupancies", scheduleHandler.ForClassroom)
		api.GET("/classes/:id/occupancies", scheduleHandler.ForClass)
		api.GET("/students/:id/occupancies", scheduleHandler.ForStudent)

		api.GET("/profile/last-occupancies-modifications", feedHandler.Modifications)

		api.POST("/calendar-tokens", calendarHandler.MintToken)
		api.GET("/calendar/occupancies", calendarHandler.Occupancies)

		if exportJobSvc != nil {
			exportHandler := handler.NewExportHandler(exportJobSvc)
			api.POST("/exports", exportHandler.Create)
			api.GET("/exports/:id", exportHandler.Status)
			api.GET("/exports/download/:token", exportHandler.Download)
		}
		if cfg.Feed.StreamEnabled {
			streamHandler := handler.NewStreamHandler(feedSvc)
			api.GET("/occupancies/stream", streamHandler.Stream)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
