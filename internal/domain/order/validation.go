package order

import (
	"errors"
	"fmt"

	"github.com/retail-payment-ledger/internal/domain/shared"
)

var (
	ErrNonPositiveTotal     = errors.New("order total must be greater than zero")
	ErrNonPositiveQuantity  = errors.New("order quantity must be greater than zero")
	ErrInvalidKind          = errors.New("order kind must be PURCHASE or SALES")
	ErrNegativePayment      = errors.New("payment amount cannot be negative")
	ErrMissingPaymentType   = errors.New("payment type is required for a non-zero payment")
	ErrInvalidPaymentType   = errors.New("payment type must be Cash, Bank or Cheque")
	ErrMissingAccountNumber = errors.New("account number is required for bank payments")
	ErrPaymentExceedsTotal  = errors.New("total paid cannot be greater than the order total")
	ErrImmutableField       = errors.New("order identifiers cannot be changed")
	ErrAmountPrecision      = errors.New("amounts cannot have more than 4 decimal places")
)

// ValidationError wraps one of the sentinel errors above with details for the caller
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the amounts and payment rules of an order. It does not look
// at store-assigned identifiers.
func (o *Order) Validate() error {
	if !o.Kind.Valid() {
		return &ValidationError{Err: ErrInvalidKind, Details: fmt.Sprintf("got %q", o.Kind)}
	}
	if !o.Total.IsPositive() {
		return &ValidationError{Err: ErrNonPositiveTotal, Details: "total " + o.Total.String()}
	}
	if !FitsScale(o.Total) {
		return &ValidationError{Err: ErrAmountPrecision, Details: "total " + o.Total.String()}
	}
	if o.Quantity <= 0 {
		return &ValidationError{Err: ErrNonPositiveQuantity, Details: fmt.Sprintf("quantity %d", o.Quantity)}
	}

	for i, p := range o.Payments {
		if p.Amount.IsNegative() {
			return &ValidationError{Err: ErrNegativePayment, Details: fmt.Sprintf("payment %d amount %s", i, p.Amount)}
		}
		if !FitsScale(p.Amount) {
			return &ValidationError{Err: ErrAmountPrecision, Details: fmt.Sprintf("payment %d amount %s", i, p.Amount)}
		}
		if p.PaymentType == "" {
			if p.Amount.IsPositive() {
				return &ValidationError{Err: ErrMissingPaymentType, Details: fmt.Sprintf("payment %d", i)}
			}
			continue
		}
		if !p.PaymentType.Valid() {
			return &ValidationError{Err: ErrInvalidPaymentType, Details: fmt.Sprintf("payment %d type %q", i, p.PaymentType)}
		}
		if p.PaymentType == shared.PaymentTypeBank && p.AccountNumber == "" {
			return &ValidationError{Err: ErrMissingAccountNumber, Details: fmt.Sprintf("payment %d", i)}
		}
	}

	if paid := o.TotalPaid(); paid.GreaterThan(o.Total) {
		return &ValidationError{
			Err:     ErrPaymentExceedsTotal,
			Details: fmt.Sprintf("total paid %s exceeds order total %s", paid, o.Total),
		}
	}

	return nil
}

// ValidateUpdate validates next as a replacement for prev
func ValidateUpdate(prev, next *Order) error {
	if prev.ID != next.ID || prev.OrderNumber != next.OrderNumber || prev.Kind != next.Kind {
		return &ValidationError{
			Err:     ErrImmutableField,
			Details: fmt.Sprintf("order %s cannot become %s", prev.OrderNumber, next.OrderNumber),
		}
	}
	return next.Validate()
}
