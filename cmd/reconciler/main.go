package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retail-payment-ledger/internal/config"
	"github.com/retail-payment-ledger/internal/data/mongo"
	"github.com/retail-payment-ledger/internal/data/postgres"
	"github.com/retail-payment-ledger/internal/logger"
	"github.com/retail-payment-ledger/internal/platform/lock"
	"github.com/retail-payment-ledger/internal/platform/messaging/consumers"
	"github.com/retail-payment-ledger/internal/platform/messaging/producers"
	"github.com/retail-payment-ledger/internal/platform/persistence"
	"github.com/retail-payment-ledger/internal/reconciler/components"
	"github.com/retail-payment-ledger/internal/reconciler/consumer"
	"github.com/retail-payment-ledger/internal/reconciler/outbox_poller"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	ledgers, err := mongo.NewLedgerSet(appCtx, log, mongoDB.Database(), &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize ledgers", "error", err)
		os.Exit(1)
	}
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	summaryRepo := postgres.NewSummaryRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// The reconciler only calls Reconcile and Purge, so it needs no journal
	engine := reconciliation.NewEngine(log, orderRepo, ledgers, summaryRepo, reconciliation.NoopJournal{}, locker)
	reconciler := components.CreateReconciler(engine, orderRepo, log, cfg)

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// dlqProducer is nil when DLQ_TOPIC is not configured; its callers are nil-safe
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	handler := consumer.NewReconcileRequestHandler(log, reconciler.Service, dlqPublisher(dlqProducer))
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, reconciler.Replayer, dlqPublisher(dlqProducer), log)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.ReconcileTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, handler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	reconciler.Shutdown()

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	if serviceErr != nil {
		log.Error("Reconciler shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Reconciler shutdown completed with errors")
	} else {
		log.Info("Reconciler shutdown completed successfully")
	}
}

// dlqPublisher keeps a nil producer from becoming a non-nil interface
func dlqPublisher(p *producers.DLQProducer) producers.DeadLetterPublisher {
	if p == nil {
		return nil
	}
	return p
}
