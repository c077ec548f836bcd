package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/logger"
	"github.com/retail-payment-ledger/internal/platform/messaging/producers"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

// OrderServiceImpl implements the OrderService interface
type OrderServiceImpl struct {
	engine   Engine
	orders   order.Repository
	producer producers.RequestPublisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(logger *slog.Logger, engine Engine, orders order.Repository, producer producers.RequestPublisher) OrderService {
	return &OrderServiceImpl{
		engine:   engine,
		orders:   orders,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, o *order.Order) (reconciliation.Outcome, error) {
	outcome, err := s.engine.OnOrderCreated(ctx, o)
	if err != nil {
		return outcome, err
	}

	if outcome.Pending() {
		logger.FromContext(ctx, s.logger).Warn("Order created, ledger entry pending",
			"order_number", o.OrderNumber,
			"ledger", string(outcome.To),
			"error", outcome.LedgerErr,
		)
		return outcome, nil
	}

	logger.FromContext(ctx, s.logger).Info("Order created",
		"order_number", o.OrderNumber,
		"kind", string(o.Kind),
		"action", string(outcome.Action),
		"ledger", string(outcome.To),
	)
	return outcome, nil
}

func (s *OrderServiceImpl) UpdateOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID, changes *order.Order) (*order.Order, reconciliation.Outcome, error) {
	prev, err := s.GetOrder(ctx, kind, id)
	if err != nil {
		return nil, reconciliation.Outcome{}, err
	}

	next := changes.Clone()
	next.ID = prev.ID
	next.OrderNumber = prev.OrderNumber
	next.Kind = prev.Kind
	next.CreatedAt = prev.CreatedAt

	outcome, err := s.engine.OnOrderUpdated(ctx, prev, next)
	if err != nil {
		return nil, outcome, err
	}

	logger.FromContext(ctx, s.logger).Info("Order updated",
		"order_number", next.OrderNumber,
		"action", string(outcome.Action),
		"from", string(outcome.From),
		"to", string(outcome.To),
	)
	return next, outcome, nil
}

func (s *OrderServiceImpl) DeleteOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID) (reconciliation.Outcome, error) {
	o, err := s.GetOrder(ctx, kind, id)
	if err != nil {
		return reconciliation.Outcome{}, err
	}

	outcome, err := s.engine.OnOrderDeleted(ctx, o)
	if err != nil {
		return outcome, err
	}

	logger.FromContext(ctx, s.logger).Info("Order deleted",
		"order_number", o.OrderNumber,
		"action", string(outcome.Action),
		"ledger", string(outcome.From),
	)
	return outcome, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Kind != kind {
		return nil, order.ErrOrderNotFound{ID: id}
	}
	return o, nil
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, kind shared.OrderKind, page, perPage int) ([]*order.Order, int64, error) {
	offset := (page - 1) * perPage

	orders, err := s.orders.List(ctx, kind, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orders.Count(ctx, kind)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (s *OrderServiceImpl) RequestReconcile(ctx context.Context, kind shared.OrderKind, id uuid.UUID, correlationID string) (*shared.ReconcileRequest, error) {
	o, err := s.GetOrder(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	request := &shared.ReconcileRequest{
		RequestID:     uuid.New(),
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Kind:          o.Kind,
		Reason:        "manual",
		CorrelationID: correlationID,
		Timestamp:     s.now().UTC(),
	}

	if err := s.producer.PublishRequest(ctx, request); err != nil {
		logger.FromContext(ctx, s.logger).Error("Failed to publish reconcile request",
			"order_number", o.OrderNumber,
			"error", err,
		)
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("Reconcile request published",
		"request_id", request.RequestID.String(),
		"order_number", request.OrderNumber,
	)
	return request, nil
}
