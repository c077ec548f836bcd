package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/ledger"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

// Engine is the part of the reconciliation engine driven by order writes
type Engine interface {
	OnOrderCreated(ctx context.Context, o *order.Order) (reconciliation.Outcome, error)
	OnOrderUpdated(ctx context.Context, prev, next *order.Order) (reconciliation.Outcome, error)
	OnOrderDeleted(ctx context.Context, o *order.Order) (reconciliation.Outcome, error)
}

// OrderService defines the interface for purchase and sales order operations.
// Every method is scoped to one order kind; an order of the other kind is reported
// as ErrOrderNotFound.
type OrderService interface {
	// CreateOrder stores the order and records its ledger entry.
	// o receives its ID and OrderNumber.
	CreateOrder(ctx context.Context, o *order.Order) (reconciliation.Outcome, error)

	// UpdateOrder replaces the mutable fields of the stored order with those of changes
	// and returns the order as stored
	UpdateOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID, changes *order.Order) (*order.Order, reconciliation.Outcome, error)

	// DeleteOrder removes the order and its ledger entry
	DeleteOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID) (reconciliation.Outcome, error)

	// GetOrder returns ErrOrderNotFound if the order doesn't exist
	GetOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID) (*order.Order, error)

	// ListOrders returns a page of orders and the total count for the kind
	ListOrders(ctx context.Context, kind shared.OrderKind, page, perPage int) ([]*order.Order, int64, error)

	// RequestReconcile asks the reconciler to converge the order's ledger state asynchronously
	RequestReconcile(ctx context.Context, kind shared.OrderKind, id uuid.UUID, correlationID string) (*shared.ReconcileRequest, error)
}

// LedgerService defines the read side of the three ledgers
type LedgerService interface {
	// ListEntries returns a page of entries and the total count for one ledger
	ListEntries(ctx context.Context, kind ledger.Kind, page, perPage int) ([]*ledger.Entry, int64, error)
}
