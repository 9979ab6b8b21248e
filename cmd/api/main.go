package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lending-ledger/config"
	httpHandler "lending-ledger/internal/adapter/http/handler"
	"lending-ledger/internal/adapter/provider"
	"lending-ledger/internal/adapter/queue"
	pgStorage "lending-ledger/internal/adapter/storage/postgres"
	redisStorage "lending-ledger/internal/adapter/storage/redis"
	"lending-ledger/internal/core/ports"
	"lending-ledger/internal/service"
	"lending-ledger/pkg/logger"
)

const dedupCacheTTL = 48 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting lending ledger")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	webhookEventRepo := pgStorage.NewWebhookEventRepo(pool)
	loanRepo := pgStorage.NewLoanScheduleRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	eventDedup := redisStorage.NewEventDedupStore(rdb, dedupCacheTTL)
	webhookQueue := redisStorage.NewWebhookQueue(rdb, cfg.Ledger.QueueKey, cfg.Ledger.DeadLetterKey)

	// Initialize provider clients
	providers := provider.NewRegistry(cfg.Providers, log)

	// Initialize business services
	sigSvc := service.NewWebhookSignatureService()
	ledgerSvc := service.NewLedgerService(txRepo, walletRepo, transactor, logger.Component(log, "ledger"))
	walletSvc := service.NewWalletService(walletRepo, txRepo, logger.Component(log, "wallet"))
	payoutSvc := service.NewPayoutService(
		withdrawalRepo,
		walletRepo,
		ledgerSvc,
		providers,
		cfg.Ledger.MaxVerifyAttempts,
		cfg.Ledger.ReconcileStaleness,
		logger.Component(log, "payout"),
	)
	gate := service.NewReconciliationGate(
		webhookEventRepo,
		providers,
		ledgerSvc,
		walletSvc,
		payoutSvc,
		cfg.Ledger.MaxVerifyAttempts,
		logger.Component(log, "gate"),
	)
	loanSvc := service.NewLoanService(loanRepo, logger.Component(log, "loan"))

	// Background workers
	consumer := queue.NewWebhookConsumer(webhookQueue, eventDedup, gate, cfg.Ledger.MaxVerifyAttempts, logger.Component(log, "consumer"))
	go consumer.Start(ctx)
	go payoutSvc.StartReconciler(ctx, cfg.Ledger.ReconcileInterval)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		LedgerSvc:      ledgerSvc,
		PayoutSvc:      payoutSvc,
		LoanSvc:        loanSvc,
		WebhookQueue:   webhookQueue,
		SigSvc:         sigSvc,
		Providers:      cfg.Providers,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
