package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mirathi/mirathi/internal/app"
	"github.com/mirathi/mirathi/internal/calculation"
	"github.com/mirathi/mirathi/internal/debts"
	"github.com/mirathi/mirathi/internal/observability"
	"github.com/mirathi/mirathi/internal/platform/cache"
	"github.com/mirathi/mirathi/internal/platform/db"
	"github.com/mirathi/mirathi/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	debtRepo := debts.NewRepository(pool)
	debtService := debts.NewService(debtRepo, logger)
	calcCache := calculation.NewCache(redisClient, cfg.CacheTTL)

	sweepTask, err := jobs.NewStatuteSweepTask(jobs.StatuteSweepPayload{})
	if err != nil {
		logger.Error("build statute sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStatuteSweep, Handler: jobs.NewStatuteSweepHandler(debtService, calcCacheInvalidator{calcCache}, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.StatuteSweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

// calcCacheInvalidator bumps the shared calculation cache version so API
// instances recompute after the sweep changes claim state.
type calcCacheInvalidator struct {
	cache *calculation.Cache
}

func (c calcCacheInvalidator) Invalidate(ctx context.Context) error {
	return c.cache.Bump(ctx)
}
