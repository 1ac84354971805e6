package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vidassign-api/internal/config"
	"github.com/noah-isme/vidassign-api/internal/database"
	"github.com/noah-isme/vidassign-api/internal/handler"
	"github.com/noah-isme/vidassign-api/internal/middleware"
	"github.com/noah-isme/vidassign-api/internal/repository"
	"github.com/noah-isme/vidassign-api/internal/router"
	"github.com/noah-isme/vidassign-api/internal/service"
	cloud "github.com/noah-isme/vidassign-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	var tagger service.MediaTagger
	if cfg.CloudinaryEnabled() {
		cloudTagger, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Tag:       cfg.CloudinaryTag,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		tagger = cloudTagger
	} else {
		logger.Warn().Msg("cloudinary credentials missing, media tagging disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	gradebookRepo := repository.NewGradebookRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	eventRepo := repository.NewEventRepository(db)

	eventService := service.NewEventService(eventRepo, redisClient, natsConn, cfg.NotificationChannel, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	gradebookSync := service.NewGradebookSync(gradebookRepo, assignmentRepo, submissionRepo, redisClient, logger)
	listingService := service.NewListingService(assignmentRepo, submissionRepo, enrollmentRepo, redisClient, cfg.SummaryCacheTTL, logger)
	preferenceService := service.NewPreferenceService(preferenceRepo, validate, logger)
	alerter := service.NewTeacherAlerter(service.NewGraderResolver(enrollmentRepo), enrollmentRepo, notificationService, cfg.BaseURL, logger)

	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, calendarRepo, gradebookSync, eventService, tagger, listingService, validate, logger)
	submissionService := service.NewSubmissionService(assignmentRepo, submissionRepo, enrollmentRepo, eventService, alerter, tagger, listingService, logger)
	gradingService := service.NewGradingService(assignmentRepo, submissionRepo, enrollmentRepo, gradebookSync, eventService, notificationService, listingService, cfg.BaseURL, logger)

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()
	notificationService.Start(appCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		Health:              handler.HealthDependencies{DB: db, Redis: redisClient, NATS: natsConn},
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		CourseHandler:       handler.NewCourseHandler(assignmentService, listingService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, validate, cfg.SubmissionRateLimit, logger),
		GradingHandler:      handler.NewGradingHandler(gradingService, listingService, preferenceService, eventService, gradebookSync, validate, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Msg("server started")

	waitForShutdown(app, cancelApp)
}

func waitForShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
