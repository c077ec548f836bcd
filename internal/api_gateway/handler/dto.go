package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest is one payment in an order request. Amounts may be sent as
// JSON numbers or strings.
type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"nonneg_decimal"`
	PaymentType   string          `json:"payment_type" binding:"omitempty,oneof=Cash Bank Cheque"`
	AccountNumber string          `json:"account_number" binding:"required_if=PaymentType Bank,max=34"`
	Note          string          `json:"note" binding:"max=500"`
	Date          *time.Time      `json:"date"`
}

// OrderRequest is the body of create and update requests for purchases and sales.
// On update it replaces every mutable field, payments included.
type OrderRequest struct {
	CounterpartID   string           `json:"counterpart_id" binding:"required,uuid"`
	CounterpartName string           `json:"counterpart_name" binding:"required,max=200"`
	ProductID       string           `json:"product_id" binding:"omitempty,uuid"`
	ProductName     string           `json:"product_name" binding:"max=200"`
	WarehouseID     string           `json:"warehouse_id" binding:"omitempty,uuid"`
	Quantity        int              `json:"quantity" binding:"required,gt=0"`
	Total           decimal.Decimal  `json:"total" binding:"pos_decimal"`
	Payments        []PaymentRequest `json:"payments" binding:"max=100,dive"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	Amount        string `json:"amount"`
	PaymentType   string `json:"payment_type,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Note          string `json:"note,omitempty"`
	Date          string `json:"date"`
}

// OrderResponse represents an order with its derived payment state
type OrderResponse struct {
	ID              string            `json:"id"`
	OrderNumber     string            `json:"order_number"`
	Kind            string            `json:"kind"`
	CounterpartID   string            `json:"counterpart_id"`
	CounterpartName string            `json:"counterpart_name"`
	ProductID       string            `json:"product_id,omitempty"`
	ProductName     string            `json:"product_name,omitempty"`
	WarehouseID     string            `json:"warehouse_id,omitempty"`
	Quantity        int               `json:"quantity"`
	Total           string            `json:"total"`
	TotalPaid       string            `json:"total_paid"`
	Balance         string            `json:"balance"`
	Status          string            `json:"status"`
	Payments        []PaymentResponse `json:"payments"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// ReconciliationResponse describes what an order write did to the ledgers
type ReconciliationResponse struct {
	Action         string `json:"action"`
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	EntryID        string `json:"entry_id,omitempty"`
	SummaryWarning string `json:"summary_warning,omitempty"`
}

// OrderWriteResponse is returned by create, update and delete
type OrderWriteResponse struct {
	Order          *OrderResponse         `json:"order,omitempty"`
	Reconciliation ReconciliationResponse `json:"reconciliation"`
}

// ReconcileAcceptedResponse is returned when a reconcile request was queued
type ReconcileAcceptedResponse struct {
	RequestID   string `json:"request_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID              string `json:"id"`
	Ledger          string `json:"ledger"`
	OrderNumber     string `json:"order_id"`
	Source          string `json:"source"`
	CounterpartName string `json:"counterpart_name"`
	ProductName     string `json:"product_name,omitempty"`
	Quantity        int    `json:"quantity"`
	TotalAmount     string `json:"total_amount"`
	AmountPaid      string `json:"amount_paid"`
	Balance         string `json:"balance"`
	PaymentType     string `json:"payment_type"`
	AccountNumber   string `json:"account_number,omitempty"`
	Note            string `json:"note,omitempty"`
	Date            string `json:"date"`
	UpdatedAt       string `json:"updated_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
