// Package config provides configuration structures and validation for the ledger services.
// Both the API gateway and the reconciler share one Config, loaded from defaults, an
// optional .env file and the process environment.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Lock        LockConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	ReconcileTopic    string // Topic carrying ledger repair requests
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string

	TopicCheckAttempts int           // Partition reads before a missing topic is created
	TopicCheckInterval time.Duration // Pause between partition reads
	RetryBackoff       time.Duration // First pause before a failed message is handled again
	MaxRetryBackoff    time.Duration // Ceiling for the doubling pause
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration.
// The three ledger collections are configurable so that an existing deployment
// can keep its collection names.
type MongoDBConfig struct {
	URI              string
	Database         string
	Timeout          time.Duration
	MaxPoolSize      uint64
	MinPoolSize      uint64
	MaxConnIdleTime  time.Duration
	CashInHandColl   string
	CashInBankColl   string
	CashInChequeColl string
}

// RedisConfig contains the connection settings for the lock store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig controls the per-order reconciliation lock
type LockConfig struct {
	Enabled       bool
	TTL           time.Duration // How long a lock is held before it expires on its own
	RetryInterval time.Duration
	RetryCount    int
}

// OutboxConfig contains reconciliation outbox configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int           // Attempts before an intent is marked FAILED
	SettleDelay      time.Duration // Intents younger than this may still be in flight and are skipped
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// validate checks every section and reports all problems at once
func (c *Config) validate() error {
	var validationErrors []string

	// Server
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Kafka
	if c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.ReconcileTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_RECONCILE_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}
	if c.Kafka.TopicCheckAttempts <= 0 {
		validationErrors = append(validationErrors, "KAFKA_TOPIC_CHECK_ATTEMPTS must be greater than 0")
	}
	if c.Kafka.TopicCheckInterval < 0 {
		validationErrors = append(validationErrors, "KAFKA_TOPIC_CHECK_INTERVAL must not be negative")
	}
	if c.Kafka.RetryBackoff <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_RETRY_BACKOFF must be greater than 0")
	}
	if c.Kafka.MaxRetryBackoff < c.Kafka.RetryBackoff {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_RETRY_BACKOFF must not be below KAFKA_CONSUMER_RETRY_BACKOFF")
	}

	// PostgreSQL
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// MongoDB
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}
	if c.MongoDB.CashInHandColl == "" || c.MongoDB.CashInBankColl == "" || c.MongoDB.CashInChequeColl == "" {
		validationErrors = append(validationErrors, "MONGO_CASH_IN_HAND_COLLECTION, MONGO_CASH_IN_BANK_COLLECTION and MONGO_CASH_IN_CHEQUE_COLLECTION are required")
	} else if c.MongoDB.CashInHandColl == c.MongoDB.CashInBankColl ||
		c.MongoDB.CashInHandColl == c.MongoDB.CashInChequeColl ||
		c.MongoDB.CashInBankColl == c.MongoDB.CashInChequeColl {
		validationErrors = append(validationErrors, "ledger collections must be distinct")
	}

	// Redis and lock
	if c.Lock.Enabled {
		if c.Redis.Addr == "" {
			validationErrors = append(validationErrors, "REDIS_ADDR is required when LOCK_ENABLED is true")
		}
		if c.Lock.TTL <= 0 {
			validationErrors = append(validationErrors, "LOCK_TTL must be greater than 0")
		}
		if c.Lock.RetryInterval <= 0 {
			validationErrors = append(validationErrors, "LOCK_RETRY_INTERVAL must be greater than 0")
		}
		if c.Lock.RetryCount < 0 {
			validationErrors = append(validationErrors, "LOCK_RETRY_COUNT must not be negative")
		}
	}

	// Outbox
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}
	if c.Outbox.SettleDelay < 0 {
		validationErrors = append(validationErrors, "OUTBOX_SETTLE_DELAY must not be negative")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
