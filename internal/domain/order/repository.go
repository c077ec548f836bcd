package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/shared"
)

// Repository persists orders together with their payments.
// Create assigns ID, OrderNumber and timestamps on the passed order.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	List(ctx context.Context, kind shared.OrderKind, limit, offset int) ([]*Order, error)
	Count(ctx context.Context, kind shared.OrderKind) (int64, error)
}

// ErrOrderNotFound indicates a missing order. A zero value matches any ErrOrderNotFound.
type ErrOrderNotFound struct {
	ID          uuid.UUID
	OrderNumber string
}

func (e ErrOrderNotFound) Error() string {
	if e.OrderNumber != "" {
		return "order not found: " + e.OrderNumber
	}
	return "order not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrOrderNotFound
func (e ErrOrderNotFound) Is(target error) bool {
	t, ok := target.(ErrOrderNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil && t.OrderNumber == "" {
		return true
	}
	return e.ID == t.ID && e.OrderNumber == t.OrderNumber
}
