// Package lock serializes reconciliation of a single order across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"

	"github.com/retail-payment-ledger/internal/config"
)

// ErrNotObtained is returned when another holder keeps the lock past all retries
var ErrNotObtained = errors.New("lock not obtained")

const keyPrefix = "ledger:reconcile:"

// Handle is a held lock
type Handle interface {
	Release(ctx context.Context) error
}

// Locker obtains exclusive per-key locks
type Locker interface {
	Obtain(ctx context.Context, key string) (Handle, error)
}

// RedisLocker implements Locker with bsm/redislock
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	opts   *redislock.Options
	logger *slog.Logger
}

// NewRedisLocker creates a Locker on top of a Redis client
func NewRedisLocker(logger *slog.Logger, client redislock.RedisClient, cfg *config.LockConfig) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    cfg.TTL,
		opts: &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(cfg.RetryInterval), cfg.RetryCount),
		},
		logger: logger,
	}
}

// Obtain blocks until the lock for key is held or the retry budget is spent
func (l *RedisLocker) Obtain(ctx context.Context, key string) (Handle, error) {
	lk, err := l.client.Obtain(ctx, Key(key), l.ttl, l.opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("Could not obtain reconciliation lock", "key", key)
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		l.logger.Error("Error obtaining reconciliation lock", "key", key, "error", err)
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return lk, nil
}

// Key is the Redis key guarding an order number
func Key(orderNumber string) string {
	return keyPrefix + orderNumber
}

// Noop is a Locker that always succeeds. It is used when locking is disabled.
type Noop struct{}

func (Noop) Obtain(context.Context, string) (Handle, error) {
	return noopHandle{}, nil
}

type noopHandle struct{}

func (noopHandle) Release(context.Context) error { return nil }

// New returns a Redis-backed Locker when locking is enabled and Noop otherwise
func New(logger *slog.Logger, client redislock.RedisClient, cfg *config.LockConfig) Locker {
	if !cfg.Enabled || client == nil {
		return Noop{}
	}
	return NewRedisLocker(logger, client, cfg)
}
