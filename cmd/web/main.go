package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-roster-web/internal/backend"
	"github.com/noah-isme/gema-roster-web/internal/config"
	"github.com/noah-isme/gema-roster-web/internal/database"
	"github.com/noah-isme/gema-roster-web/internal/handler"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/observability"
	"github.com/noah-isme/gema-roster-web/internal/render"
	"github.com/noah-isme/gema-roster-web/internal/repository"
	"github.com/noah-isme/gema-roster-web/internal/router"
	"github.com/noah-isme/gema-roster-web/internal/service"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

const warmUpTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	client, err := backend.New(backend.Config{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		ContractCheck: cfg.ContractCheck,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create backend client")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(client)
	warmCtx, cancelWarm := context.WithTimeout(rootCtx, warmUpTimeout)
	if _, err := st.RefreshAll(warmCtx); err != nil {
		logger.Warn().Err(err).Msg("initial store load failed; panels will load on first request")
	}
	cancelWarm()

	validate := validator.New(validator.WithRequiredStructEnabled())

	var activity service.ActivityService
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		activity = service.NewActivityService(repository.NewActivityLogRepository(db), validate, logger)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	events := service.NewEventService(service.EventConfig{
		Redis:   redisClient,
		NATS:    natsConn,
		Channel: cfg.EventsChannel,
	}, st, logger)
	events.Start(rootCtx)

	opts := service.Options{
		HideAfter:            cfg.EditHideDelay,
		RefetchAfterMutation: cfg.RefetchAfterMutation,
		DueDates:             view.DueDateFormat{Layout: cfg.DueDateLayout, Location: cfg.Location()},
	}

	tracker := service.NewCellTracker()
	studentService := service.NewStudentService(client, st, events, activity, validate, opts, logger)
	assignmentService := service.NewAssignmentService(client, st, events, activity, validate, opts, logger)
	matrixService := service.NewMatrixService(client, st, tracker, events, activity, validate, logger)
	pageService := service.NewPageService(st, matrixService, activity, opts, cfg.AppName, logger)

	renderer, err := render.New(cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse templates")
	}

	deps := router.Dependencies{
		PageHandler:       handler.NewPageHandler(pageService, renderer, logger),
		StudentHandler:    handler.NewStudentHandler(studentService, renderer, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, renderer, logger),
		MatrixHandler:     handler.NewMatrixHandler(matrixService, renderer, logger),
		EventHandler:      handler.NewEventHandler(events, logger, cfg.EventsKeepAlive),
		Store:             st,
		MutationLimiter:   middleware.RateLimit("ui", cfg.MutationRateLimit, cfg.MutationRateLimitSpan),
	}
	if activity != nil {
		deps.ActivityHandler = handler.NewActivityHandler(activity, renderer, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	app.Get("/metrics", observability.MetricsHandler())
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(rootCtx, app, logger)
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
