package ledger

import (
	"fmt"

	"github.com/retail-payment-ledger/internal/domain/shared"
)

// Kind identifies one of the three payment-type-partitioned ledgers
type Kind string

const (
	KindCashInHand   Kind = "CASH_IN_HAND"
	KindCashInBank   Kind = "CASH_IN_BANK"
	KindCashInCheque Kind = "CASH_IN_CHEQUE"
)

// SearchOrder is the fixed order in which ledgers are searched for an order's entry.
// It only makes lookups deterministic and carries no priority.
var SearchOrder = []Kind{KindCashInHand, KindCashInBank, KindCashInCheque}

// KindFor maps a payment type to the ledger that records it
func KindFor(pt shared.PaymentType) (Kind, bool) {
	switch pt {
	case shared.PaymentTypeCash:
		return KindCashInHand, true
	case shared.PaymentTypeBank:
		return KindCashInBank, true
	case shared.PaymentTypeCheque:
		return KindCashInCheque, true
	}
	return "", false
}

// Slug is the URL form of the kind, e.g. cash-in-hand
func (k Kind) Slug() string {
	switch k {
	case KindCashInHand:
		return "cash-in-hand"
	case KindCashInBank:
		return "cash-in-bank"
	case KindCashInCheque:
		return "cash-in-cheque"
	}
	return ""
}

// ParseKind accepts either the constant or the slug form
func ParseKind(s string) (Kind, error) {
	for _, k := range SearchOrder {
		if s == string(k) || s == k.Slug() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown ledger %q", s)
}
