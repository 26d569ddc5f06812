package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	routes "github.com/mnuddindev/cookpulse/internal/api"
	v1 "github.com/mnuddindev/cookpulse/internal/api/v1"
	"github.com/mnuddindev/cookpulse/internal/auth"
	"github.com/mnuddindev/cookpulse/internal/calendar"
	"github.com/mnuddindev/cookpulse/internal/config"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/internal/metrics"
	"github.com/mnuddindev/cookpulse/internal/models"
	"github.com/mnuddindev/cookpulse/internal/recipeapi"
	"github.com/mnuddindev/cookpulse/pkg/logger"
	storage "github.com/mnuddindev/cookpulse/pkg/redis"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

const poolStatsInterval = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	log, err := logger.NewLogger(logger.WithOutputDir(cfg.LogDir))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	redisClient, err := storage.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize Redis")
		panic(err)
	}

	gormDB, err := db.NewDB(
		ctx,
		cfg.DSN(),
		models.RegisterModels(),
		db.WithLogger(log),
		db.WithPool(25, 10, 30*time.Minute),
	)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize PostgreSQL database")
		panic("DB init failed")
	}
	defer db.CloseDB(log)

	if err := models.SeedRoles(ctx, gormDB, redisClient); err != nil {
		log.Error(ctx).WithError(err).Logs("Failed to seed roles")
		panic(err)
	}

	m := metrics.NewMetrics()
	db.ConfigureTx(db.TxSettings{
		LockTimeout: cfg.TxLockTimeout,
		Attempts:    cfg.TxAttempts,
		OnRetry: func(attempt int, err error) {
			m.TxRetries.Inc()
			log.Warn(ctx).WithError(err).WithFields(attempt).Logs("Retrying transaction, attempt %d")
		},
	})
	go recordPoolStats(ctx, m)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		log.Error(ctx).WithError(err).Logs("Invalid JWT_SECRET")
		panic(err)
	}

	recipeClient, err := recipeapi.New(cfg.RecipeAPIURL, cfg.RecipeAPIKey,
		recipeapi.WithTimeout(cfg.RecipeAPITimeout),
		recipeapi.WithConcurrency(cfg.RecipeAPIConcurrency),
		recipeapi.WithLogger(log),
		recipeapi.WithMetrics(m),
	)
	if err != nil {
		log.Error(ctx).WithError(err).Logs("Failed to configure recipe API client")
		panic(err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "cookpulse",
		ErrorHandler: utils.HandleError,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	routes.NewRoutes(ctx, app, cfg, v1.Deps{
		DB:     gormDB,
		Redis:  redisClient,
		Logger: log,
		Email: utils.EmailConfig{
			SMTPHost:     cfg.SMTPHost,
			SMTPPort:     cfg.SMTPPort,
			SMTPUsername: cfg.SMTPUser,
			SMTPPassword: cfg.SMTPPass,
			AppURL:       cfg.AppURL,
			FromEmail:    cfg.MailFrom,
		},
		Tokens:    tokens,
		Calendar:  calendar.NewScheduler(calendar.NewRedisStore(redisClient.Client)),
		RecipeAPI: recipeClient,
		Metrics:   m,
	})

	go func() {
		<-ctx.Done()
		log.Info(context.Background()).Logs("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error(context.Background()).WithError(err).Logs("Server shutdown failed")
		}
	}()

	log.Info(ctx).WithFields(cfg.ServerAddr).Logs("Listening on %s")
	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Error(ctx).WithError(err).Logs("Server stopped")
	}
}

func recordPoolStats(ctx context.Context, m *metrics.Metrics) {
	t := time.NewTicker(poolStatsInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sqlDB, err := db.GetDB().DB()
			if err != nil {
				continue
			}
			m.RecordDBPoolStats(sqlDB.Stats())
		}
	}
}
