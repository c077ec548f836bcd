package service

import (
	"context"

	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/outbox"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

// ReconcileService converges the ledgers for one order on request
type ReconcileService interface {
	Handle(ctx context.Context, request *shared.ReconcileRequest) error
}

// IntentReplayer replays a pending reconciliation intent from the outbox
type IntentReplayer interface {
	Replay(ctx context.Context, message *outbox.Message) error
}

// Engine is the part of the reconciliation engine the reconciler drives
type Engine interface {
	Reconcile(ctx context.Context, o *order.Order) (reconciliation.Outcome, error)
	Purge(ctx context.Context, orderNumber string) (reconciliation.Outcome, error)
}
