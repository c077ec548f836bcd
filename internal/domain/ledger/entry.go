package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Entry is the denormalized ledger record of an order's payment state.
// OrderNumber is the join key back to the order.
type Entry struct {
	ID              uuid.UUID          `json:"id"`
	OrderNumber     string             `json:"order_id"`
	Source          shared.OrderKind   `json:"source"`
	CounterpartName string             `json:"counterpart_name"`
	ProductName     string             `json:"product_name"`
	Quantity        int                `json:"quantity"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	AmountPaid      decimal.Decimal    `json:"amount_paid"`
	Balance         decimal.Decimal    `json:"balance"`
	PaymentType     shared.PaymentType `json:"payment_type"`
	AccountNumber   string             `json:"account_number,omitempty"`
	Note            string             `json:"note,omitempty"`
	Date            time.Time          `json:"date"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewEntry snapshots the order into a ledger entry. The entry ID is left for
// the ledger store to assign.
func NewEntry(o *order.Order) *Entry {
	e := &Entry{OrderNumber: o.OrderNumber}
	e.Apply(o)
	return e
}

// Apply refreshes the snapshot fields from the order, keeping ID and CreatedAt
func (e *Entry) Apply(o *order.Order) {
	p, _ := o.CurrentPayment()

	e.Source = o.Kind
	e.CounterpartName = o.CounterpartName
	e.ProductName = o.ProductName
	e.Quantity = o.Quantity
	e.TotalAmount = o.Total
	e.AmountPaid = o.TotalPaid()
	e.Balance = o.Balance()
	e.PaymentType = p.PaymentType
	e.AccountNumber = p.AccountNumber
	e.Note = p.Note
	e.Date = order.PaymentDate(p.Date)
}

// Matches reports whether the entry already reflects the order. Dates compare
// at order.DatePrecision, the finest resolution every store keeps.
func (e *Entry) Matches(o *order.Order) bool {
	want := Entry{ID: e.ID, OrderNumber: e.OrderNumber, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
	want.Apply(o)

	return e.Source == want.Source &&
		e.CounterpartName == want.CounterpartName &&
		e.ProductName == want.ProductName &&
		e.Quantity == want.Quantity &&
		e.TotalAmount.Equal(want.TotalAmount) &&
		e.AmountPaid.Equal(want.AmountPaid) &&
		e.Balance.Equal(want.Balance) &&
		e.PaymentType == want.PaymentType &&
		e.AccountNumber == want.AccountNumber &&
		e.Note == want.Note &&
		order.PaymentDate(e.Date).Equal(want.Date)
}
