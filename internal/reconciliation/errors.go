package reconciliation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/retail-payment-ledger/internal/domain/ledger"
	"github.com/retail-payment-ledger/internal/domain/order"
)

// IntegrityError reports more than one ledger entry for an order. It is never
// resolved automatically; the entries need manual repair.
type IntegrityError struct {
	OrderNumber string
	Found       []ledger.Kind
}

func (e *IntegrityError) Error() string {
	kinds := make([]string, len(e.Found))
	for i, k := range e.Found {
		kinds[i] = string(k)
	}
	return fmt.Sprintf("order %s has %d ledger entries (%s)", e.OrderNumber, len(e.Found), strings.Join(kinds, ", "))
}

// TransientError wraps a store failure. The whole operation is safe to retry.
type TransientError struct {
	Op    string
	Store string
	Err   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s on %s failed: %v", e.Op, e.Store, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func transient(op, store string, err error) error {
	return &TransientError{Op: op, Store: store, Err: err}
}

// IsValidation reports whether err rejected the request before any store was written
func IsValidation(err error) bool {
	var v *order.ValidationError
	return errors.As(err, &v)
}

// IsIntegrity reports whether err needs manual repair
func IsIntegrity(err error) bool {
	var i *IntegrityError
	return errors.As(err, &i)
}

// IsTransient reports whether the caller may retry the operation
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
