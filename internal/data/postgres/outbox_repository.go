package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/retail-payment-ledger/internal/domain/outbox"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/platform/persistence"
)

// OutboxRepository implements the outbox.Repository interface for PostgreSQL
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a new intent in pending status for the poller to pick up
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO reconciliation_outbox (order_id, order_number, operation, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.OrderID,
		message.OrderNumber,
		message.Operation,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"order_number", message.OrderNumber,
			"operation", string(message.Operation),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// GetPending retrieves a batch of pending intents last touched at or before
// settledBefore, oldest first. The cutoff keeps the poller away from intents
// whose request is still in flight.
func (r *OutboxRepository) GetPending(ctx context.Context, settledBefore time.Time, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT id, order_id, order_number, operation, payload, status, attempts, last_error, created_at, last_attempt_at
		FROM reconciliation_outbox
		WHERE status = $1 AND COALESCE(last_attempt_at, created_at) <= $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, settledBefore, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		var message outbox.Message
		err := rows.Scan(
			&message.ID,
			&message.OrderID,
			&message.OrderNumber,
			&message.Operation,
			&message.Payload,
			&message.Status,
			&message.Attempts,
			&message.LastError,
			&message.CreatedAt,
			&message.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox message", "error", err)
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox messages", "error", err)
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}

	return messages, nil
}

// UpdateStatus moves an intent to a new status.
// Returns ErrMessageNotFound if the message doesn't exist.
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus, reason string) error {
	query := `
		UPDATE reconciliation_outbox
		SET status = $1, last_error = $2, last_attempt_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, status, reason, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts bumps the retry counter and records why the attempt failed
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE reconciliation_outbox
		SET attempts = attempts + 1, last_error = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, reason, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to increment outbox message attempts",
			"id", id,
			"error", err,
		)
		return fmt.Errorf("failed to increment outbox message attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}

// Delete permanently removes an intent
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM reconciliation_outbox WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete outbox message",
			"id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete outbox message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}
