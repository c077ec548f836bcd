package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
)

// Message is a reconciliation intent: a durable record that one order's ledger
// state has to converge. The payload is the order as the caller submitted it.
type Message struct {
	ID            int64               `json:"id"`
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	Operation     shared.Operation    `json:"operation"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	LastError     string              `json:"last_error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage records a pending intent for the given order snapshot
func NewMessage(op shared.Operation, o *order.Order) (*Message, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}

	return &Message{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Operation:   op,
		Payload:     payload,
		Status:      shared.OutboxStatusPending,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts(reason string) {
	m.Attempts++
	m.LastError = reason
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed(reason string) {
	m.Status = shared.OutboxStatusFailed
	m.LastError = reason
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetOrder extracts the order snapshot from the payload
func (m *Message) GetOrder() (*order.Order, error) {
	var o order.Order
	if err := json.Unmarshal(m.Payload, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
