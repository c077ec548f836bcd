// Package reconciliation keeps every order's payment state in step with at most
// one entry across the cash-in-hand, cash-in-bank and cash-in-cheque ledgers.
//
// The order store and the three ledger stores share no transaction. Every
// operation therefore re-reads the ledgers, works out the target state and
// applies the smallest set of writes to reach it, so re-running an interrupted
// operation with the same input converges.
package reconciliation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/retail-payment-ledger/internal/domain/ledger"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/domain/summary"
	"github.com/retail-payment-ledger/internal/platform/lock"
)

// Engine is the only writer of ledger entries
type Engine struct {
	orders    order.Repository
	ledgers   ledger.Set
	summaries summary.Repository
	journal   Journal
	locker    lock.Locker
	logger    *slog.Logger
}

// NewEngine wires the engine to its stores. A nil journal or locker disables
// intent recording or per-order locking.
func NewEngine(
	logger *slog.Logger,
	orders order.Repository,
	ledgers ledger.Set,
	summaries summary.Repository,
	journal Journal,
	locker lock.Locker,
) *Engine {
	if journal == nil {
		journal = NoopJournal{}
	}
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Engine{
		orders:    orders,
		ledgers:   ledgers,
		summaries: summaries,
		journal:   journal,
		locker:    locker,
		logger:    logger,
	}
}

// located is an existing ledger entry and the ledger it was found in
type located struct {
	kind  ledger.Kind
	entry *ledger.Entry
}

// OnOrderCreated validates and stores a new order, then records its ledger entry
// if it carries a payment. o receives its ID and OrderNumber.
//
// Once the order is stored the call no longer fails: a ledger write that cannot
// be made now is left to the recorded intent and reported as ActionPending.
func (e *Engine) OnOrderCreated(ctx context.Context, o *order.Order) (Outcome, error) {
	if err := o.Validate(); err != nil {
		return Outcome{}, err
	}

	if err := e.orders.Create(ctx, o); err != nil {
		return Outcome{}, transient("create", "order store", err)
	}
	logger := e.logger.With("order_number", o.OrderNumber)

	// The order number only exists once the order is stored, so the intent follows it.
	intentID, err := e.journal.Record(ctx, shared.OperationCreate, o)
	if err != nil {
		derr := e.orders.Delete(ctx, o.ID)
		if derr == nil {
			logger.Warn("Order withdrawn, reconciliation intent not recorded", "error", err)
			o.ID, o.OrderNumber = uuid.Nil, ""
			return Outcome{}, transient("record intent", "outbox", err)
		}
		logger.Error("Order stored without a reconciliation intent",
			"error", err,
			"delete_error", derr)
	}

	target, paid := targetLedger(o)

	release, err := e.obtain(ctx, o.OrderNumber)
	if err != nil {
		return e.pending(logger, target, err), nil
	}
	defer release()

	// A fresh order number cannot have an entry yet, so there is nothing to search.
	outcome := Outcome{Action: ActionNone}
	if paid {
		entry, err := e.createEntry(ctx, target, o)
		if err != nil {
			return e.pending(logger, target, err), nil
		}
		outcome = Outcome{Action: ActionCreated, To: target, Entry: entry}
	}

	outcome.SummaryErr = e.upsertSummary(ctx, logger, o)
	e.complete(ctx, logger, intentID)

	logger.Info("Order created", "action", string(outcome.Action), "ledger", string(outcome.To))
	return outcome, nil
}

// pending reports a stored order whose ledger write was deferred to the reconciler
func (e *Engine) pending(logger *slog.Logger, target ledger.Kind, err error) Outcome {
	logger.Warn("Ledger write deferred to reconciliation", "ledger", string(target), "error", err)
	return Outcome{Action: ActionPending, To: target, LedgerErr: err}
}

// OnOrderUpdated validates next against prev, stores it and reconciles its ledger entry.
// The ledger move is decided by where the entry is found, not by prev's payment type.
func (e *Engine) OnOrderUpdated(ctx context.Context, prev, next *order.Order) (Outcome, error) {
	if err := order.ValidateUpdate(prev, next); err != nil {
		return Outcome{}, err
	}
	logger := e.logger.With("order_number", next.OrderNumber)

	release, err := e.obtain(ctx, next.OrderNumber)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	intentID, err := e.journal.Record(ctx, shared.OperationUpdate, next)
	if err != nil {
		return Outcome{}, transient("record intent", "outbox", err)
	}

	if err := e.orders.Update(ctx, next); err != nil {
		if errors.Is(err, order.ErrOrderNotFound{}) {
			e.complete(ctx, logger, intentID)
			return Outcome{}, err
		}
		return Outcome{}, transient("update", "order store", err)
	}

	outcome, err := e.reconcile(ctx, logger, next)
	if err != nil {
		return outcome, err
	}
	outcome.SummaryErr = e.upsertSummary(ctx, logger, next)
	e.complete(ctx, logger, intentID)

	logger.Info("Order updated",
		"action", string(outcome.Action),
		"from", string(outcome.From),
		"to", string(outcome.To))
	return outcome, nil
}

// OnOrderDeleted removes the order and whatever ledger entry it still has.
// A missing entry is not an error. The summary is kept as history.
func (e *Engine) OnOrderDeleted(ctx context.Context, o *order.Order) (Outcome, error) {
	logger := e.logger.With("order_number", o.OrderNumber)

	release, err := e.obtain(ctx, o.OrderNumber)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	intentID, err := e.journal.Record(ctx, shared.OperationDelete, o)
	if err != nil {
		return Outcome{}, transient("record intent", "outbox", err)
	}

	if err := e.orders.Delete(ctx, o.ID); err != nil {
		if !errors.Is(err, order.ErrOrderNotFound{}) {
			return Outcome{}, transient("delete", "order store", err)
		}
		logger.Info("Order already removed, purging ledger entry")
	}

	outcome, err := e.purge(ctx, o.OrderNumber)
	if err != nil {
		return outcome, err
	}
	e.complete(ctx, logger, intentID)

	logger.Info("Order deleted", "action", string(outcome.Action), "ledger", string(outcome.From))
	return outcome, nil
}

// Reconcile converges the ledgers on a stored order without writing the order.
// It is the repair path used by the reconciler.
func (e *Engine) Reconcile(ctx context.Context, o *order.Order) (Outcome, error) {
	if err := o.Validate(); err != nil {
		return Outcome{}, err
	}
	logger := e.logger.With("order_number", o.OrderNumber)

	release, err := e.obtain(ctx, o.OrderNumber)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	outcome, err := e.reconcile(ctx, logger, o)
	if err != nil {
		return outcome, err
	}
	outcome.SummaryErr = e.upsertSummary(ctx, logger, o)
	return outcome, nil
}

// Purge deletes the ledger entry of an order that no longer exists
func (e *Engine) Purge(ctx context.Context, orderNumber string) (Outcome, error) {
	release, err := e.obtain(ctx, orderNumber)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	return e.purge(ctx, orderNumber)
}

// reconcile applies the create/update/delete/migrate decision for o
func (e *Engine) reconcile(ctx context.Context, logger *slog.Logger, o *order.Order) (Outcome, error) {
	existing, err := e.locate(ctx, o.OrderNumber)
	if err != nil {
		return Outcome{}, err
	}
	target, hasTarget := targetLedger(o)

	switch {
	case existing == nil && !hasTarget:
		return Outcome{Action: ActionNone}, nil

	case existing == nil:
		entry, err := e.createEntry(ctx, target, o)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Action: ActionCreated, To: target, Entry: entry}, nil

	case !hasTarget:
		if err := e.deleteEntry(ctx, existing); err != nil {
			return Outcome{}, err
		}
		return Outcome{Action: ActionDeleted, From: existing.kind}, nil

	case existing.kind == target:
		if existing.entry.Matches(o) {
			return Outcome{Action: ActionNone, From: target, To: target, Entry: existing.entry}, nil
		}
		existing.entry.Apply(o)
		if err := e.ledgers[target].Update(ctx, existing.entry); err != nil {
			return Outcome{}, transient("update", string(target), err)
		}
		return Outcome{Action: ActionUpdated, From: target, To: target, Entry: existing.entry}, nil
	}

	// Migration is delete then create. A failed create leaves no entry, which
	// the next run repairs by taking the create branch above.
	if err := e.deleteEntry(ctx, existing); err != nil {
		return Outcome{}, err
	}
	entry, err := e.createEntry(ctx, target, o)
	if err != nil {
		logger.Error("Ledger migration interrupted after delete",
			"from", string(existing.kind),
			"to", string(target),
			"error", err)
		return Outcome{Action: ActionDeleted, From: existing.kind}, err
	}
	return Outcome{Action: ActionMigrated, From: existing.kind, To: target, Entry: entry}, nil
}

func (e *Engine) purge(ctx context.Context, orderNumber string) (Outcome, error) {
	existing, err := e.locate(ctx, orderNumber)
	if err != nil {
		return Outcome{}, err
	}
	if existing == nil {
		return Outcome{Action: ActionNone}, nil
	}
	if err := e.deleteEntry(ctx, existing); err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionDeleted, From: existing.kind}, nil
}

// locate searches the ledgers in SearchOrder and returns the single entry for
// the order, nil if there is none, or an IntegrityError if there are several.
func (e *Engine) locate(ctx context.Context, orderNumber string) (*located, error) {
	var found []located
	for _, kind := range ledger.SearchOrder {
		entries, err := e.ledgers[kind].FindByOrderNumber(ctx, orderNumber)
		if err != nil {
			return nil, transient("find", string(kind), err)
		}
		for _, entry := range entries {
			found = append(found, located{kind: kind, entry: entry})
		}
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	}

	kinds := make([]ledger.Kind, len(found))
	for i, f := range found {
		kinds[i] = f.kind
	}
	e.logger.Error("Order has more than one ledger entry",
		"order_number", orderNumber,
		"ledgers", kinds)
	return nil, &IntegrityError{OrderNumber: orderNumber, Found: kinds}
}

func (e *Engine) createEntry(ctx context.Context, kind ledger.Kind, o *order.Order) (*ledger.Entry, error) {
	entry := ledger.NewEntry(o)
	if err := e.ledgers[kind].Create(ctx, entry); err != nil {
		return nil, transient("create", string(kind), err)
	}
	return entry, nil
}

func (e *Engine) deleteEntry(ctx context.Context, l *located) error {
	err := e.ledgers[l.kind].Delete(ctx, l.entry.ID)
	if err != nil && !errors.Is(err, ledger.ErrEntryNotFound{}) {
		return transient("delete", string(l.kind), err)
	}
	return nil
}

// upsertSummary writes the payable/receivable summary. Failures are logged and
// returned for the outcome, never propagated.
func (e *Engine) upsertSummary(ctx context.Context, logger *slog.Logger, o *order.Order) error {
	s := summary.FromOrder(o)

	_, err := e.summaries.GetByKey(ctx, s.Key)
	switch {
	case errors.Is(err, summary.ErrSummaryNotFound{}):
		err = e.summaries.Create(ctx, s)
	case err == nil:
		err = e.summaries.Update(ctx, s)
	}
	if err != nil {
		logger.Warn("Failed to write "+s.Direction()+" summary", "error", err)
	}
	return err
}

// obtain takes the per-order lock and returns its release function
func (e *Engine) obtain(ctx context.Context, orderNumber string) (func(), error) {
	h, err := e.locker.Obtain(ctx, orderNumber)
	if err != nil {
		return nil, transient("lock", "lock store", err)
	}
	return func() {
		if err := h.Release(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("Failed to release reconciliation lock", "order_number", orderNumber, "error", err)
		}
	}, nil
}

// complete marks the intent processed. A failure leaves the intent pending and
// the poller replays it, which is harmless.
func (e *Engine) complete(ctx context.Context, logger *slog.Logger, intentID int64) {
	if intentID == 0 {
		return
	}
	if err := e.journal.Complete(ctx, intentID); err != nil {
		logger.Warn("Failed to complete reconciliation intent", "intent_id", intentID, "error", err)
	}
}

// targetLedger is the ledger o's entry belongs in, if it should have one
func targetLedger(o *order.Order) (ledger.Kind, bool) {
	if !o.HasPaid() {
		return "", false
	}
	p, ok := o.CurrentPayment()
	if !ok {
		return "", false
	}
	return ledger.KindFor(p.PaymentType)
}
