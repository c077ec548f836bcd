package shared

// OrderKind distinguishes purchase orders from sales orders
type OrderKind string

const (
	OrderKindPurchase OrderKind = "PURCHASE"
	OrderKindSales    OrderKind = "SALES"
)

// Valid reports whether k is a known order kind
func (k OrderKind) Valid() bool {
	return k == OrderKindPurchase || k == OrderKindSales
}

// Prefix is the business order number prefix for the kind
func (k OrderKind) Prefix() string {
	if k == OrderKindSales {
		return "SAL"
	}
	return "PUR"
}

// PaymentType is the instrument a payment was made with
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "Cash"
	PaymentTypeBank   PaymentType = "Bank"
	PaymentTypeCheque PaymentType = "Cheque"
)

// Valid reports whether t is a known payment type
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeCash, PaymentTypeBank, PaymentTypeCheque:
		return true
	}
	return false
}

// PaymentStatus is derived from an order's total and what has been paid against it
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "Unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentStatusPaid          PaymentStatus = "Paid"
)

// Rank orders statuses Unpaid < Partially Paid < Paid
func (s PaymentStatus) Rank() int {
	switch s {
	case PaymentStatusPartiallyPaid:
		return 1
	case PaymentStatusPaid:
		return 2
	}
	return 0
}

// OutboxStatus defines reconciliation intent states
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Operation names the order mutation that triggered a reconciliation
type Operation string

const (
	OperationCreate    Operation = "CREATE"
	OperationUpdate    Operation = "UPDATE"
	OperationDelete    Operation = "DELETE"
	OperationReconcile Operation = "RECONCILE"
)
