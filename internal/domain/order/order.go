package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of decimal places money is stored with
	AmountScale int32 = 4
	// DatePrecision is the finest payment date resolution every store keeps
	DatePrecision = time.Millisecond
)

// FitsScale reports whether d can be stored without rounding
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(AmountScale))
}

// PaymentDate normalizes a payment date to UTC at DatePrecision
func PaymentDate(t time.Time) time.Time {
	return t.UTC().Truncate(DatePrecision)
}

// Payment is one recorded payment against an order
type Payment struct {
	Amount        decimal.Decimal    `json:"amount"`
	PaymentType   shared.PaymentType `json:"payment_type,omitempty"`
	AccountNumber string             `json:"account_number,omitempty"`
	Note          string             `json:"note,omitempty"`
	Date          time.Time          `json:"date"`
}

// Order is a purchase or sales order. ID and OrderNumber are assigned by the
// order store and never change afterwards.
type Order struct {
	ID              uuid.UUID        `json:"id"`
	OrderNumber     string           `json:"order_number"`
	Kind            shared.OrderKind `json:"kind"`
	CounterpartID   uuid.UUID        `json:"counterpart_id"`
	CounterpartName string           `json:"counterpart_name"`
	ProductID       uuid.UUID        `json:"product_id"`
	ProductName     string           `json:"product_name"`
	WarehouseID     uuid.UUID        `json:"warehouse_id"`
	Quantity        int              `json:"quantity"`
	Total           decimal.Decimal  `json:"total"`
	Payments        []Payment        `json:"payments"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TotalPaid is the sum of all payment amounts
func (o *Order) TotalPaid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range o.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Balance is what remains outstanding on the order
func (o *Order) Balance() decimal.Decimal {
	return o.Total.Sub(o.TotalPaid())
}

// Status derives the payment status from the total and the amount paid.
// It is not defined for negative totals.
func (o *Order) Status() shared.PaymentStatus {
	return StatusFor(o.Total, o.TotalPaid())
}

// StatusFor is the status of an order with the given total after paid has been received
func StatusFor(total, paid decimal.Decimal) shared.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return shared.PaymentStatusPaid
	case paid.IsPositive():
		return shared.PaymentStatusPartiallyPaid
	default:
		return shared.PaymentStatusUnpaid
	}
}

// CurrentPayment returns the latest payment that names a payment type.
// Earlier payments are history; the current one decides which ledger the
// order's entry belongs in.
func (o *Order) CurrentPayment() (Payment, bool) {
	for i := len(o.Payments) - 1; i >= 0; i-- {
		if o.Payments[i].PaymentType != "" {
			return o.Payments[i], true
		}
	}
	return Payment{}, false
}

// HasPaid reports whether any money has been recorded against the order
func (o *Order) HasPaid() bool {
	return o.TotalPaid().IsPositive()
}

// Clone returns a deep copy so callers can keep a snapshot of the order
func (o *Order) Clone() *Order {
	c := *o
	c.Payments = append([]Payment(nil), o.Payments...)
	return &c
}

// FormatNumber builds the business order number, e.g. PUR-20240301-00042
func FormatNumber(kind shared.OrderKind, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%05d", kind.Prefix(), day.Format("20060102"), seq)
}
