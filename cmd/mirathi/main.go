package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mirathi/mirathi/internal/app"
	"github.com/mirathi/mirathi/internal/calculation"
	"github.com/mirathi/mirathi/internal/debts"
	"github.com/mirathi/mirathi/internal/money"
	"github.com/mirathi/mirathi/internal/observability"
	"github.com/mirathi/mirathi/internal/platform/cache"
	"github.com/mirathi/mirathi/internal/platform/db"
	"github.com/mirathi/mirathi/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	defaultInflation, err := money.NewPercentageFromFloat(cfg.DefaultInflationRatePct)
	if err != nil {
		logger.Error("invalid default inflation rate", slog.Any("error", err))
		os.Exit(1)
	}

	debtRepo := debts.NewRepository(dbpool)
	debtService := debts.NewService(debtRepo, logger)
	debtHandler := debts.NewHandler(logger, debtService)

	calcCache := calculation.NewCache(redisClient, cfg.CacheTTL)
	if err := calcCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	calcStore := calculation.NewRepository(dbpool)
	calcService := calculation.NewService(calcCache, calcStore, debtService, logger, metrics, defaultInflation)
	calcHandler := calculation.NewHandler(logger, calcService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		DebtsHandler:       debtHandler,
		CalculationHandler: calcHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
