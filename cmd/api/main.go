package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/smilecare/clinic-api/internal/config"
	appointmentHandler "github.com/smilecare/clinic-api/internal/handler/appointment"
	attachmentHandler "github.com/smilecare/clinic-api/internal/handler/attachment"
	authHandler "github.com/smilecare/clinic-api/internal/handler/auth"
	catalogHandler "github.com/smilecare/clinic-api/internal/handler/catalog"
	notificationHandler "github.com/smilecare/clinic-api/internal/handler/notification"
	patientHandler "github.com/smilecare/clinic-api/internal/handler/patient"
	"github.com/smilecare/clinic-api/internal/middleware"
	"github.com/smilecare/clinic-api/internal/repository/postgres"
	"github.com/smilecare/clinic-api/internal/router"
	appointmentService "github.com/smilecare/clinic-api/internal/service/appointment"
	attachmentService "github.com/smilecare/clinic-api/internal/service/attachment"
	auditService "github.com/smilecare/clinic-api/internal/service/audit"
	authService "github.com/smilecare/clinic-api/internal/service/auth"
	catalogService "github.com/smilecare/clinic-api/internal/service/catalog"
	notificationService "github.com/smilecare/clinic-api/internal/service/notification"
	patientService "github.com/smilecare/clinic-api/internal/service/patient"
	referenceService "github.com/smilecare/clinic-api/internal/service/reference"
	"github.com/smilecare/clinic-api/pkg/auth"
	"github.com/smilecare/clinic-api/pkg/filestore"
	"github.com/smilecare/clinic-api/pkg/logger"
	"github.com/smilecare/clinic-api/pkg/messaging/redis"
	"github.com/smilecare/clinic-api/pkg/metrics"
	"github.com/smilecare/clinic-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		level = parsed
	}
	appLog := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLog.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	files, err := filestore.NewDiskStore(cfg.Storage.AttachmentDir)
	if err != nil {
		appLog.Fatal(err, "failed to initialize file storage")
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		appLog.Fatal(err, "failed to initialize audit logger")
	}
	defer zapLogger.Sync()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	attachmentRepo := postgres.NewAttachmentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Notification broker; the API stays up without Redis, notifications
	// then only land in the database.
	zl := appLog.Zerolog()
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, zl)
	if err != nil {
		appLog.Error(err, "redis unavailable, notification fan-out disabled")
		broker = nil
	}

	m := metrics.NewMetrics("clinic", "core")
	auditor := auditService.NewService(zapLogger)

	// Services
	refSvc := referenceService.NewService(userRepo, patientRepo, serviceRepo)
	notifSvc := notificationService.NewService(notificationRepo, broker, zl)
	appointmentSvc := appointmentService.NewService(appointmentRepo, refSvc, notifSvc, auditor, m, zl)
	attachmentSvc := attachmentService.NewService(attachmentRepo, refSvc, files, auditor, m, zl)
	patientSvc := patientService.NewService(patientRepo, files, refSvc, auditor, m, zl)
	catalogSvc := catalogService.NewService(serviceRepo, appointmentRepo, auditor)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(userRepo, hasher, jwtSvc)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		patientHandler.NewHandler(patientSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		attachmentHandler.NewHandler(attachmentSvc),
		catalogHandler.NewHandler(catalogSvc),
		notificationHandler.NewHandler(notifSvc),
		db,
		router.Config{
			RateLimit:     rate.Limit(cfg.Server.RateLimit),
			RateBurst:     cfg.Server.RateBurst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "clinic_api",
		},
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		zl.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error(err, "forced shutdown")
	}
	if broker != nil {
		broker.Close()
	}
	appLog.Info("server stopped")
}
