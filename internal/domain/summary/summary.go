// Package summary holds the payable (purchase) and receivable (sales) summaries
// kept next to each order's ledger entry.
package summary

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Key identifies a summary. One summary exists per counterpart and order.
type Key struct {
	Kind          shared.OrderKind `json:"kind"`
	CounterpartID uuid.UUID        `json:"counterpart_id"`
	OrderNumber   string           `json:"order_number"`
}

// Summary is a payable for purchase orders and a receivable for sales orders
type Summary struct {
	Key
	CounterpartName string               `json:"counterpart_name"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	PaidAmount      decimal.Decimal      `json:"paid_amount"`
	Balance         decimal.Decimal      `json:"balance"`
	Status          shared.PaymentStatus `json:"status"`
	LastPaymentType shared.PaymentType   `json:"last_payment_type,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// KeyOf returns the summary key of an order
func KeyOf(o *order.Order) Key {
	return Key{Kind: o.Kind, CounterpartID: o.CounterpartID, OrderNumber: o.OrderNumber}
}

// FromOrder builds the summary state for an order
func FromOrder(o *order.Order) *Summary {
	p, _ := o.CurrentPayment()
	return &Summary{
		Key:             KeyOf(o),
		CounterpartName: o.CounterpartName,
		TotalAmount:     o.Total,
		PaidAmount:      o.TotalPaid(),
		Balance:         o.Balance(),
		Status:          o.Status(),
		LastPaymentType: p.PaymentType,
	}
}

// Direction is "payable" for purchases and "receivable" for sales
func (s *Summary) Direction() string {
	if s.Kind == shared.OrderKindSales {
		return "receivable"
	}
	return "payable"
}
