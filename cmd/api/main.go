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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lifegpa-api/internal/config"
	"github.com/noah-isme/lifegpa-api/internal/database"
	"github.com/noah-isme/lifegpa-api/internal/handler"
	"github.com/noah-isme/lifegpa-api/internal/middleware"
	"github.com/noah-isme/lifegpa-api/internal/repository"
	"github.com/noah-isme/lifegpa-api/internal/router"
	"github.com/noah-isme/lifegpa-api/internal/service"
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

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, report cache and submit lock disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	categoryRepo := repository.NewCategoryRepository(db)
	reportRepo := repository.NewReportCardRepository(db)

	reportService := service.NewReportService(reportRepo, redisClient, cfg.ReportCacheTTL, logger)
	baselineService := service.NewBaselineService(
		categoryRepo,
		reportRepo,
		redisClient,
		service.NewNATSReportPublisher(natsConn, cfg.NATSSubject, logger),
		reportService,
		service.BaselineServiceOptions{
			Routes: service.Routes{
				Login:    cfg.LoginRoute,
				Home:     cfg.HomeRoute,
				Previous: cfg.PreviousStepRoute,
			},
			SessionTTL:    cfg.SessionTTL,
			SubmitLockTTL: cfg.SubmitLockTTL,
		},
		logger,
	)
	seedService := service.NewSeedService(categoryRepo, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baselineService.Start(rootCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		BaselineHandler:       handler.NewBaselineHandler(baselineService, validate, logger),
		ReportHandler:         handler.NewReportHandler(reportService, logger),
		SeedHandler:           handler.NewSeedHandler(seedService, logger),
		HealthProbes:          probes,
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		OptionalJWTMiddleware: middleware.JWTOptional(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(rootCtx, app)
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
