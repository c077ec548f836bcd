package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/outbox"
	"github.com/retail-payment-ledger/internal/domain/shared"
)

// ReconcileServiceImpl always works from the stored order, never from the
// snapshot carried by a request or intent, so a late replay cannot undo a
// newer write.
type ReconcileServiceImpl struct {
	engine Engine
	orders order.Repository
	logger *slog.Logger
}

func NewReconcileService(logger *slog.Logger, engine Engine, orders order.Repository) *ReconcileServiceImpl {
	return &ReconcileServiceImpl{
		engine: engine,
		orders: orders,
		logger: logger,
	}
}

// Handle processes a reconcile request from Kafka
func (s *ReconcileServiceImpl) Handle(ctx context.Context, request *shared.ReconcileRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}
	logger.Info("Reconciling order",
		"request_id", request.RequestID.String(),
		"order_number", request.OrderNumber,
		"reason", request.Reason,
	)

	return s.converge(ctx, logger, request.OrderID, request.OrderNumber)
}

// Replay re-runs an intent left pending by an interrupted engine call
func (s *ReconcileServiceImpl) Replay(ctx context.Context, message *outbox.Message) error {
	logger := s.logger.With("intent_id", message.ID)
	logger.Info("Replaying reconciliation intent",
		"order_number", message.OrderNumber,
		"operation", string(message.Operation),
		"attempts", message.Attempts,
	)

	return s.converge(ctx, logger, message.OrderID, message.OrderNumber)
}

func (s *ReconcileServiceImpl) converge(ctx context.Context, logger *slog.Logger, orderID uuid.UUID, orderNumber string) error {
	current, err := s.load(ctx, orderID, orderNumber)
	if errors.Is(err, order.ErrOrderNotFound{}) {
		outcome, err := s.engine.Purge(ctx, orderNumber)
		if err != nil {
			return fmt.Errorf("purging ledger entry of %s failed: %w", orderNumber, err)
		}
		logger.Info("Order no longer exists, ledger purged", "order_number", orderNumber, "action", string(outcome.Action))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading order %s failed: %w", orderNumber, err)
	}

	outcome, err := s.engine.Reconcile(ctx, current)
	if err != nil {
		return fmt.Errorf("reconciling order %s failed: %w", orderNumber, err)
	}
	if w := outcome.SummaryWarning(); w != "" {
		logger.Warn("Summary not written", "order_number", orderNumber, "error", w)
	}

	logger.Info("Order reconciled",
		"order_number", orderNumber,
		"action", string(outcome.Action),
		"from", string(outcome.From),
		"to", string(outcome.To),
	)
	return nil
}

func (s *ReconcileServiceImpl) load(ctx context.Context, orderID uuid.UUID, orderNumber string) (*order.Order, error) {
	if orderID != uuid.Nil {
		return s.orders.GetByID(ctx, orderID)
	}
	return s.orders.GetByOrderNumber(ctx, orderNumber)
}
