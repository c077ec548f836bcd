package reconciliation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/outbox"
	"github.com/retail-payment-ledger/internal/domain/shared"
)

// Journal records reconciliation intents so that an interrupted operation can be replayed
type Journal interface {
	Record(ctx context.Context, op shared.Operation, o *order.Order) (int64, error)
	Complete(ctx context.Context, id int64) error
}

// NoopJournal keeps no record
type NoopJournal struct{}

func (NoopJournal) Record(context.Context, shared.Operation, *order.Order) (int64, error) {
	return 0, nil
}

func (NoopJournal) Complete(context.Context, int64) error { return nil }

// OutboxJournal stores intents in the reconciliation outbox
type OutboxJournal struct {
	repo   outbox.Repository
	logger *slog.Logger
}

func NewOutboxJournal(logger *slog.Logger, repo outbox.Repository) *OutboxJournal {
	return &OutboxJournal{repo: repo, logger: logger}
}

// Record stores a PENDING intent carrying the order snapshot
func (j *OutboxJournal) Record(ctx context.Context, op shared.Operation, o *order.Order) (int64, error) {
	msg, err := outbox.NewMessage(op, o)
	if err != nil {
		return 0, fmt.Errorf("failed to encode intent for %s: %w", o.OrderNumber, err)
	}
	if err := j.repo.Create(ctx, msg); err != nil {
		return 0, err
	}
	j.logger.Debug("Recorded reconciliation intent",
		"intent_id", msg.ID,
		"order_number", o.OrderNumber,
		"operation", string(op))
	return msg.ID, nil
}

// Complete marks the intent PROCESSED
func (j *OutboxJournal) Complete(ctx context.Context, id int64) error {
	return j.repo.UpdateStatus(ctx, id, shared.OutboxStatusProcessed, "")
}
