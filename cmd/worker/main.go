package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/rentledger/rentledger/internal/app"
	"github.com/rentledger/rentledger/internal/invoicing"
	jobmetrics "github.com/rentledger/rentledger/internal/jobs"
	"github.com/rentledger/rentledger/internal/ledger"
	"github.com/rentledger/rentledger/internal/observability"
	"github.com/rentledger/rentledger/internal/platform/cache"
	"github.com/rentledger/rentledger/internal/platform/db"
	"github.com/rentledger/rentledger/internal/provision"
	"github.com/rentledger/rentledger/jobs"
)

func main() {
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
	tracker := jobmetrics.NewMetrics(metrics.Registerer())

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, logger)
	ledgerService.WithRecorder(metrics)

	accountRepo := ledger.NewAccountRepository(pool)
	accounts := ledger.NewAccountResolver(accountRepo)

	invoiceRepo := invoicing.NewRepository(pool)
	invoiceService := invoicing.NewService(invoiceRepo, accounts, ledgerService, logger,
		invoicing.WithBatchSize(cfg.BackfillBatchSize),
		invoicing.WithBatchDelay(cfg.BackfillBatchDelay))

	provisionRepo := provision.NewRepository(pool)
	provisionCalc := provision.NewCalculator(provisionRepo)
	provisionCache := provision.NewCache(redisClient, cfg.ProvisionCacheTTL)
	warmer := provision.NewWarmer(provisionRepo, provisionCalc, provisionCache, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeLedgerBackfill, Handler: jobs.HandleBackfillTask(invoiceService, logger, metrics, tracker)},
			{Type: jobs.TaskTypeLedgerIntegrity, Handler: jobs.HandleIntegrityTask(pool, logger, tracker)},
			{Type: jobs.TaskTypeProvisionWarmup, Handler: jobs.HandleProvisionWarmupTask(warmer, logger, tracker)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: jobs.NewIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 2 * * *", Task: jobs.NewProvisionWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
