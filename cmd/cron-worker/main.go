package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leadflow-crm/leadflow-backend/internal/assignment"
	"github.com/leadflow-crm/leadflow-backend/internal/audit"
	"github.com/leadflow-crm/leadflow-backend/internal/cron"
	"github.com/leadflow-crm/leadflow-backend/internal/leads"
	"github.com/leadflow-crm/leadflow-backend/pkg/config"
	"github.com/leadflow-crm/leadflow-backend/pkg/db"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	"github.com/leadflow-crm/leadflow-backend/pkg/metrics"
	"github.com/leadflow-crm/leadflow-backend/pkg/migrate"
	"github.com/leadflow-crm/leadflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	executor, err := assignment.NewExecutor(assignment.ExecutorParams{
		Logger:  logg,
		Store:   assignment.NewRepository(dbClient.DB()),
		Metrics: metrics.NewAssignmentMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment executor", err)
		os.Exit(1)
	}

	sweeper, err := assignment.NewSweeper(assignment.SweeperParams{
		Logger:    logg,
		Leads:     leads.NewRepository(dbClient.DB()),
		Executor:  executor,
		BatchSize: cfg.Assignment.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewAssignmentSweepJob(cron.AssignmentSweepJobParams{
		Logger:  logg,
		Sweeper: sweeper,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment sweep job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewActivityRetentionJob(cron.ActivityRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: audit.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.ActivityRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create activity retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
