package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/retail-payment-ledger/internal/api_gateway"
	"github.com/retail-payment-ledger/internal/api_gateway/service"
	"github.com/retail-payment-ledger/internal/config"
	"github.com/retail-payment-ledger/internal/data/mongo"
	"github.com/retail-payment-ledger/internal/data/postgres"
	"github.com/retail-payment-ledger/internal/logger"
	"github.com/retail-payment-ledger/internal/platform/lock"
	"github.com/retail-payment-ledger/internal/platform/messaging/producers"
	"github.com/retail-payment-ledger/internal/platform/persistence"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Redis only backs the per-order lock
	var redisClient *redis.Client
	locker := lock.Locker(lock.Noop{})
	if cfg.Lock.Enabled {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		locker = lock.New(log, redisClient, &cfg.Lock)
	}

	// Kafka producer for manual reconcile requests
	kafkaProducer, err := producers.NewReconcileRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize API Gateway Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ledgers, err := mongo.NewLedgerSet(appCtx, log, mongoDB.Database(), &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize ledgers", "error", err)
		os.Exit(1)
	}
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	summaryRepo := postgres.NewSummaryRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Order writes record an intent first so the reconciler can finish interrupted work
	journal := reconciliation.NewOutboxJournal(log, outboxRepo)
	engine := reconciliation.NewEngine(log, orderRepo, ledgers, summaryRepo, journal, locker)

	// Initialize services
	orderService := service.NewOrderService(log, engine, orderRepo, kafkaProducer)
	ledgerService := service.NewLedgerService(ledgers)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, orderService, ledgerService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain HTTP requests before closing the stores they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
