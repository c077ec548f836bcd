package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/retail-payment-ledger/internal/domain/shared"
)

// Repository manages reconciliation intents
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, settledBefore time.Time, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus, reason string) error
	IncrementAttempts(ctx context.Context, id int64, reason string) error
	Delete(ctx context.Context, id int64) error
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}

// Is implements the errors.Is interface for ErrMessageNotFound
func (e ErrMessageNotFound) Is(target error) bool {
	t, ok := target.(ErrMessageNotFound)
	if !ok {
		return false
	}
	return t.ID == 0 || t.ID == e.ID
}
