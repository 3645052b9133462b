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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-admin-api/api/swagger"
	"github.com/noah-isme/school-admin-api/internal/handler"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/realtime"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/cache"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/export"
	"github.com/noah-isme/school-admin-api/pkg/facerec"
	"github.com/noah-isme/school-admin-api/pkg/jobs"
	"github.com/noah-isme/school-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

// @title School Administration API
// @version 1.0.0
// @description Academic periods, structure, curriculum, timetables, accounts and requests.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	var publisher realtime.Publisher = realtime.NopPublisher{}
	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(realtime.Config{
			SendBuffer:   cfg.Realtime.SendBuffer,
			WriteTimeout: cfg.Realtime.WriteTimeout,
			PingInterval: cfg.Realtime.PingInterval,
			CheckOrigin:  corsmiddleware.NewMatcher(cfg.CORS.AllowedOrigins).CheckOrigin,
		}, logr.Named("realtime"))
		go hub.Run(ctx)
		publisher = hub
	}

	periodRepo := repository.NewPeriodRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	yearLevelRepo := repository.NewYearLevelRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr.Named("cache"))
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Session.CacheTTL, logr.Named("cache"), redisClient != nil)

	auth := service.NewAuthService(logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	sessions := service.NewSessionService(periodRepo, cacheSvc, cfg.Session.CacheTTL, logr.Named("session"))
	periods := service.NewPeriodService(periodRepo, validate, logr.Named("periods"), publisher, sessions, metrics)
	structure := service.NewStructureService(service.StructureRepositories{
		Semesters:   periodRepo,
		Departments: departmentRepo,
		Courses:     courseRepo,
		YearLevels:  yearLevelRepo,
		Sections:    sectionRepo,
	}, validate, logr.Named("structure"), publisher)
	subjects := service.NewSubjectService(subjectRepo, structure, validate, logr.Named("subjects"), publisher)
	rooms := service.NewRoomService(roomRepo, validate, logr.Named("rooms"), publisher)
	schedules := service.NewScheduleService(scheduleRepo, service.ScheduleDependencies{
		Sections:    structure,
		Rooms:       roomRepo,
		Subjects:    subjectRepo,
		Instructors: userRepo,
	}, validate, logr.Named("schedules"), publisher)
	users := service.NewUserService(userRepo, validate, logr.Named("users"), publisher)
	bulk := service.NewBulkUploadService(userRepo, departmentRepo, sessions, service.BulkUploadConfig{
		EmailDomain:    cfg.BulkUpload.EmailDomain,
		MaxRows:        cfg.BulkUpload.MaxRows,
		PasswordLength: cfg.BulkUpload.PasswordLength,
	}, metrics, publisher, logr.Named("bulk_upload"))
	notifications := service.NewNotificationService(notificationRepo, logr.Named("notifications"), publisher)
	auditor := service.NewInvariantAuditor(periodRepo, metrics, logr.Named("invariants"))

	attachments, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init attachment storage: %w", err)
	}
	requests := service.NewRequestService(requestRepo, userRepo, attachments, service.RequestServiceConfig{
		MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	}, validate, logr.Named("requests"), publisher)

	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	exports := service.NewExportService(structure, scheduleRepo, exportFiles,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr.Named("exports"), export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter())

	var faces *service.FaceEnrollmentService
	if cfg.FaceRecog.Enabled {
		faces = service.NewFaceEnrollmentService(userRepo, facerec.NewClient(cfg.FaceRecog.BaseURL, cfg.FaceRecog.Timeout), validate, metrics, logr.Named("faces"))
		queue := jobs.NewQueue("face-registration", faces.HandleJob, jobs.QueueConfig{
			Workers:    cfg.FaceRecog.Workers,
			MaxRetries: cfg.FaceRecog.MaxRetries,
			RetryDelay: cfg.FaceRecog.RetryDelay,
			Logger:     logr.Named("jobs"),
			DeadLetter: faces.DeadLetter,
		})
		faces.UseQueue(queue)
		queue.Start(ctx)
		defer queue.Stop()
	}

	if cfg.Cron.Enabled {
		scheduler, err := startMaintenance(cfg.Cron, exports, cfg.Exports.MaxAge, auditor, logr.Named("cron"))
		if err != nil {
			return err
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	usersHandler := handler.NewUserHandler(users, bulk, nil, cfg.BulkUpload.MaxFileSizeBytes)
	if faces != nil {
		usersHandler = handler.NewUserHandler(users, bulk, faces, cfg.BulkUpload.MaxFileSizeBytes)
	}
	liveHandler := handler.NewLiveHandler(nil, logr.Named("realtime"))
	if hub != nil {
		liveHandler = handler.NewLiveHandler(hub, logr.Named("realtime"))
	}

	handlers := handler.Handlers{
		Periods:       handler.NewPeriodHandler(periods),
		Structure:     handler.NewStructureHandler(structure),
		Subjects:      handler.NewSubjectHandler(subjects),
		Rooms:         handler.NewRoomHandler(rooms),
		Schedules:     handler.NewScheduleHandler(schedules, exports),
		Exports:       handler.NewExportHandler(exports),
		Users:         usersHandler,
		Requests:      handler.NewRequestHandler(requests, cfg.Storage.MaxFileSizeBytes),
		Notifications: handler.NewNotificationHandler(notifications),
		Session:       handler.NewSessionHandler(sessions),
		Live:          liveHandler,
		Metrics:       handler.NewMetricsHandler(metrics, auditor),
	}
	handler.Register(r, cfg.APIPrefix, handlers, auth, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
