package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-dms/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-dms/internal/jobs"
	"github.com/odyssey-erp/odyssey-dms/internal/loading"
	"github.com/odyssey-erp/odyssey-dms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-dms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-dms/internal/platform/upstream"
	"github.com/odyssey-erp/odyssey-dms/internal/receipt"
	"github.com/odyssey-erp/odyssey-dms/internal/shared"
	"github.com/odyssey-erp/odyssey-dms/jobs"
	"github.com/odyssey-erp/odyssey-dms/report"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 4})
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

	api := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, upstream.WithToken(cfg.UpstreamToken))
	orders := loading.NewAPISource(api)
	groups := loading.NewService(orders, orders, logger)

	gotenberg := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	renderer, err := receipt.NewRenderer(gotenberg)
	if err != nil {
		logger.Error("init receipt renderer", slog.Any("error", err))
		os.Exit(1)
	}
	receiptService := receipt.NewService(
		groups,
		renderer,
		receipt.NewStore(redisClient, cfg.ReceiptTTL),
		receipt.NewFormatter(cfg.ReceiptLocale),
		logger,
	)

	metrics := jobmetrics.NewMetrics(nil)
	receiptJob := jobs.NewReceiptJob(receiptService, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(cfg.IdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReceiptGenerate, Handler: receiptJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IdempotencyCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
