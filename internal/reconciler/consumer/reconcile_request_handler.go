package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/platform/messaging/producers"
	"github.com/retail-payment-ledger/internal/reconciler/service"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

// ReconcileRequestHandler handles reconcile requests from Kafka. Messages that
// can never succeed go to the DLQ; transient failures are left uncommitted.
type ReconcileRequestHandler struct {
	reconcileService service.ReconcileService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

func NewReconcileRequestHandler(
	logger *slog.Logger,
	reconcileService service.ReconcileService,
	producer producers.DeadLetterPublisher,
) *ReconcileRequestHandler {
	return &ReconcileRequestHandler{
		reconcileService: reconcileService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage processes one Kafka message
func (h *ReconcileRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.ReconcileRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal reconcile request", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, key, value, fmt.Sprintf("unmarshal: %s", err), err)
	}
	if request.OrderNumber == "" {
		h.logger.Error("Reconcile request without order number", "message_key", string(key))
		return h.deadLetter(ctx, key, value, "missing order number", fmt.Errorf("reconcile request %s has no order number", request.RequestID))
	}

	err := h.reconcileService.Handle(ctx, &request)
	switch {
	case err == nil:
		return nil
	case reconciliation.IsIntegrity(err), reconciliation.IsValidation(err):
		return h.deadLetter(ctx, key, value, err.Error(), err)
	default:
		return fmt.Errorf("reconcile request %s failed: %w", request.RequestID.String(), err)
	}
}

// deadLetter parks the message. When the DLQ is unavailable cause is returned
// so the offset stays uncommitted.
func (h *ReconcileRequestHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return cause
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return cause
	}
	return nil
}
