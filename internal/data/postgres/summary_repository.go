package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/retail-payment-ledger/internal/domain/summary"
	"github.com/retail-payment-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// SummaryRepository implements summary.Repository for PostgreSQL
type SummaryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	now     func() time.Time
}

// NewSummaryRepository creates a new PostgreSQL payable/receivable summary repository
func NewSummaryRepository(logger *slog.Logger, db *persistence.PostgresDB) summary.Repository {
	return &SummaryRepository{
		querier: db.Pool(),
		logger:  logger,
		now:     time.Now,
	}
}

// Create stores a summary for a key seen for the first time
func (r *SummaryRepository) Create(ctx context.Context, s *summary.Summary) error {
	query := `
		INSERT INTO payment_summaries (kind, counterpart_id, order_number, counterpart_name,
			total_amount, paid_amount, balance, status, last_payment_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	now := r.now().UTC()

	_, err := r.querier.Exec(ctx, query,
		s.Kind,
		s.CounterpartID,
		s.OrderNumber,
		s.CounterpartName,
		s.TotalAmount,
		s.PaidAmount,
		s.Balance,
		s.Status,
		s.LastPaymentType,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create payment summary",
			"order_number", s.OrderNumber,
			"direction", s.Direction(),
			"error", err,
		)
		return fmt.Errorf("failed to create payment summary: %w", err)
	}

	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// Update overwrites the amounts and status of an existing summary.
// Returns ErrSummaryNotFound if the summary doesn't exist.
func (r *SummaryRepository) Update(ctx context.Context, s *summary.Summary) error {
	query := `
		UPDATE payment_summaries
		SET counterpart_name = $4, total_amount = $5, paid_amount = $6, balance = $7,
			status = $8, last_payment_type = $9, updated_at = $10
		WHERE kind = $1 AND counterpart_id = $2 AND order_number = $3
	`
	now := r.now().UTC()

	result, err := r.querier.Exec(ctx, query,
		s.Kind,
		s.CounterpartID,
		s.OrderNumber,
		s.CounterpartName,
		s.TotalAmount,
		s.PaidAmount,
		s.Balance,
		s.Status,
		s.LastPaymentType,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to update payment summary",
			"order_number", s.OrderNumber,
			"direction", s.Direction(),
			"error", err,
		)
		return fmt.Errorf("failed to update payment summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return summary.ErrSummaryNotFound{Key: s.Key}
	}

	s.UpdatedAt = now
	return nil
}

// GetByKey retrieves the summary for a counterpart and order
func (r *SummaryRepository) GetByKey(ctx context.Context, key summary.Key) (*summary.Summary, error) {
	query := `
		SELECT counterpart_name, total_amount::text, paid_amount::text, balance::text,
			status, last_payment_type, created_at, updated_at
		FROM payment_summaries
		WHERE kind = $1 AND counterpart_id = $2 AND order_number = $3
	`

	s := summary.Summary{Key: key}
	var total, paid, balance string
	err := r.querier.QueryRow(ctx, query, key.Kind, key.CounterpartID, key.OrderNumber).Scan(
		&s.CounterpartName,
		&total,
		&paid,
		&balance,
		&s.Status,
		&s.LastPaymentType,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, summary.ErrSummaryNotFound{Key: key}
		}
		r.logger.Error("Failed to get payment summary", "order_number", key.OrderNumber, "error", err)
		return nil, fmt.Errorf("failed to get payment summary: %w", err)
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&s.TotalAmount, total}, {&s.PaidAmount, paid}, {&s.Balance, balance}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("invalid summary amount %q: %w", f.src, err)
		}
	}

	return &s, nil
}
