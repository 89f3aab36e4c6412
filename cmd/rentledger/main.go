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

	"github.com/rentledger/rentledger/internal/app"
	"github.com/rentledger/rentledger/internal/invoicing"
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, logger)
	ledgerService.WithRecorder(metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	accountRepo := ledger.NewAccountRepository(pool)
	accounts := ledger.NewAccountResolver(accountRepo)

	invoiceRepo := invoicing.NewRepository(pool)
	invoiceService := invoicing.NewService(invoiceRepo, accounts, ledgerService, logger,
		invoicing.WithBatchSize(cfg.BackfillBatchSize),
		invoicing.WithBatchDelay(cfg.BackfillBatchDelay))

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	invoiceHandler := invoicing.NewHandler(logger, invoiceService, jobClient)

	provisionRepo := provision.NewRepository(pool)
	provisionCalc := provision.NewCalculator(provisionRepo)
	provisionPoster := provision.NewPoster(accounts, ledgerService, logger)
	provisionCache := provision.NewCache(redisClient, cfg.ProvisionCacheTTL)
	provisionHandler := provision.NewHandler(logger, provisionCalc, provisionPoster, provisionCache)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		LedgerHandler:    ledgerHandler,
		InvoicingHandler: invoiceHandler,
		ProvisionHandler: provisionHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
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
