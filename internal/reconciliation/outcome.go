package reconciliation

import (
	"github.com/retail-payment-ledger/internal/domain/ledger"
)

// Action is what reconciliation did to an order's ledger entry
type Action string

const (
	ActionNone     Action = "NONE"
	ActionCreated  Action = "CREATED"
	ActionUpdated  Action = "UPDATED"
	ActionDeleted  Action = "DELETED"
	ActionMigrated Action = "MIGRATED"
	// ActionPending means the order is stored but its ledger write is left to the reconciler
	ActionPending Action = "PENDING"
)

// Outcome describes the ledger side of one engine call.
// From is the ledger the entry was found in, To the ledger it ended up in.
type Outcome struct {
	Action     Action        `json:"action"`
	From       ledger.Kind   `json:"from,omitempty"`
	To         ledger.Kind   `json:"to,omitempty"`
	Entry      *ledger.Entry `json:"entry,omitempty"`
	SummaryErr error         `json:"-"`
	LedgerErr  error         `json:"-"`
}

// Pending reports whether the ledger write was deferred
func (o Outcome) Pending() bool {
	return o.Action == ActionPending
}

// SummaryWarning is the best-effort summary failure as text, empty when the write succeeded
func (o Outcome) SummaryWarning() string {
	if o.SummaryErr == nil {
		return ""
	}
	return o.SummaryErr.Error()
}
