package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-dms/internal/app"
	"github.com/odyssey-erp/odyssey-dms/internal/loading"
	"github.com/odyssey-erp/odyssey-dms/internal/observability"
	"github.com/odyssey-erp/odyssey-dms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-dms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-dms/internal/platform/upstream"
	"github.com/odyssey-erp/odyssey-dms/internal/receipt"
	"github.com/odyssey-erp/odyssey-dms/internal/shared"
	"github.com/odyssey-erp/odyssey-dms/internal/stock"
	"github.com/odyssey-erp/odyssey-dms/jobs"
	"github.com/odyssey-erp/odyssey-dms/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{})
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
	api := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, upstream.WithToken(cfg.UpstreamToken))

	stockService := stock.NewService(stock.NewAPISource(api), logger, cfg.AllocationConcurrency)
	stockHandler := stock.NewHandler(logger, stockService)

	orders := loading.NewAPISource(api)
	loadingService := loading.NewService(orders, orders, logger)
	loadingService.SetApprovalRecorder(shared.NewApprovalRecorder(dbpool, logger))
	loadingService.SetIdempotency(shared.NewIdempotencyStore(dbpool))
	loadingService.SetLocker(cache.NewLocker(redisClient))
	loadingService.SetMetrics(metrics)

	gotenberg := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	renderer, err := receipt.NewRenderer(gotenberg)
	if err != nil {
		logger.Error("parse receipt template", slog.Any("error", err))
		os.Exit(1)
	}
	receiptService := receipt.NewService(
		loadingService,
		renderer,
		receipt.NewStore(redisClient, cfg.ReceiptTTL),
		receipt.NewFormatter(cfg.ReceiptLocale),
		logger,
	)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	if cfg.ReceiptAsync {
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		loadingService.SetReceipts(jobClient)
	} else {
		loadingService.SetReceipts(receiptService)
	}
	loadingHandler := loading.NewHandler(logger, loadingService, receiptService)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Metrics:        metrics,
		StockHandler:   stockHandler,
		LoadingHandler: loadingHandler,
		ReportHandler:  report.NewHandler(gotenberg, logger),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Readiness: map[string]app.ReadinessCheck{
			"redis": func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
			"postgres": func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				return dbpool.Ping(ctx)
			},
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("receipt_async", cfg.ReceiptAsync))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
