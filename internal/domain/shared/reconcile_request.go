package shared

import (
	"time"

	"github.com/google/uuid"
)

// ReconcileRequest defines a Kafka message asking the reconciler to converge
// one order's ledger state
type ReconcileRequest struct {
	RequestID     uuid.UUID `json:"request_id"`
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	Kind          OrderKind `json:"kind"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}
