package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-card-ledger/config"
	httpHandler "campus-card-ledger/internal/adapter/http/handler"
	pgStorage "campus-card-ledger/internal/adapter/storage/postgres"
	redisStorage "campus-card-ledger/internal/adapter/storage/redis"
	"campus-card-ledger/internal/adapter/ws"
	"campus-card-ledger/internal/bus"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/internal/service"
	"campus-card-ledger/pkg/logger"
	"campus-card-ledger/pkg/money"
)

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
		Msg("Starting Campus Card Ledger")

	maxRecharge, err := money.Parse(cfg.Recharge.MaxAmount)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid recharge.max_amount")
	}

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
	cardRepo := pgStorage.NewCardRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	aggRepo := pgStorage.NewAggregateRepo(pool)
	catalogRepo := pgStorage.NewCatalogRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)

	// Event bus and websocket hub
	eventBus := bus.New(cfg.Terminal.EventBuffer, log)
	hub := ws.NewHub(log)
	go hub.Run(ctx)
	go hub.Pump(eventBus.Subscribe())

	// Initialize core services
	ledgerSvc := service.NewLedgerService(cardRepo, ledgerRepo, transactor, log)
	cardSvc := service.NewCardService(cardRepo, ledgerSvc, transactor, log)
	processorSvc := service.NewProcessorService(
		cardSvc,
		ledgerSvc,
		catalogRepo,
		txRepo,
		aggRepo,
		idempotencyRepo,
		idempotencyCache,
		transactor,
		eventBus,
		maxRecharge,
		log,
	)

	// Websocket endpoints: hardware feed in, terminal sessions out
	sessionCfg := service.SessionConfig{
		ResetDelay:        cfg.Terminal.ResetDelay,
		ProcessingTimeout: cfg.Terminal.ProcessingTimeout,
	}
	newSession := func() ports.TerminalSession {
		return service.NewSessionMachine(processorSvc, eventBus, sessionCfg, log)
	}
	readerWS := ws.NewReaderEndpoint(eventBus, log)
	terminalWS := ws.NewTerminalEndpoint(hub, eventBus, newSession, log)
	go terminalWS.TrackReader(eventBus.Subscribe())

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Cards:          cardSvc,
		Ledger:         ledgerSvc,
		Processor:      processorSvc,
		AggRepo:        aggRepo,
		ReaderWS:       readerWS,
		TerminalWS:     terminalWS,
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

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
