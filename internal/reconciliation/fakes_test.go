package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail-payment-ledger/internal/domain/ledger"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/domain/summary"
	"github.com/retail-payment-ledger/internal/platform/lock"
)

var errStoreDown = errors.New("store unavailable")

// failures lets a test make the next n calls of an operation fail
type failures struct {
	mu    sync.Mutex
	next  map[string]int
	calls map[string]int
}

func (f *failures) fail(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next == nil {
		f.next = make(map[string]int)
	}
	f.next[op] = n
}

func (f *failures) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
	if f.next[op] > 0 {
		f.next[op]--
		return fmt.Errorf("%s: %w", op, errStoreDown)
	}
	return nil
}

func (f *failures) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

type memOrders struct {
	failures
	mu     sync.Mutex
	seq    int64
	orders map[uuid.UUID]*order.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*order.Order)}
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	if err := m.check("create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	o.ID = uuid.New()
	o.OrderNumber = order.FormatNumber(o.Kind, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), m.seq)
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *memOrders) Update(_ context.Context, o *order.Order) error {
	if err := m.check("update"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return order.ErrOrderNotFound{ID: o.ID}
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *memOrders) Delete(_ context.Context, id uuid.UUID) error {
	if err := m.check("delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return order.ErrOrderNotFound{ID: id}
	}
	delete(m.orders, id)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound{ID: id}
	}
	return o.Clone(), nil
}

func (m *memOrders) GetByOrderNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNumber == orderNumber {
			return o.Clone(), nil
		}
	}
	return nil, order.ErrOrderNotFound{OrderNumber: orderNumber}
}

func (m *memOrders) List(context.Context, shared.OrderKind, int, int) ([]*order.Order, error) {
	return nil, errors.New("not used")
}

func (m *memOrders) Count(context.Context, shared.OrderKind) (int64, error) {
	return 0, errors.New("not used")
}

func (m *memOrders) has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.orders[id]
	return ok
}

func (m *memOrders) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memLedger struct {
	failures
	kind    ledger.Kind
	mu      sync.Mutex
	entries map[uuid.UUID]ledger.Entry
}

func newMemLedger(kind ledger.Kind) *memLedger {
	return &memLedger{kind: kind, entries: make(map[uuid.UUID]ledger.Entry)}
}

func (l *memLedger) Kind() ledger.Kind { return l.kind }

func (l *memLedger) Create(_ context.Context, entry *ledger.Entry) error {
	if err := l.check("create"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.ID = uuid.New()
	l.entries[entry.ID] = *entry
	return nil
}

func (l *memLedger) Update(_ context.Context, entry *ledger.Entry) error {
	if err := l.check("update"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[entry.ID]; !ok {
		return ledger.ErrEntryNotFound{ID: entry.ID}
	}
	l.entries[entry.ID] = *entry
	return nil
}

func (l *memLedger) Delete(_ context.Context, id uuid.UUID) error {
	if err := l.check("delete"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[id]; !ok {
		return ledger.ErrEntryNotFound{ID: id}
	}
	delete(l.entries, id)
	return nil
}

func (l *memLedger) FindByOrderNumber(_ context.Context, orderNumber string) ([]*ledger.Entry, error) {
	if err := l.check("find"); err != nil {
		return nil, err
	}
	return l.byOrder(orderNumber), nil
}

func (l *memLedger) List(context.Context, int, int) ([]*ledger.Entry, error) {
	return nil, errors.New("not used")
}

func (l *memLedger) Count(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.entries)), nil
}

func (l *memLedger) byOrder(orderNumber string) []*ledger.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range l.entries {
		if e.OrderNumber == orderNumber {
			c := e
			out = append(out, &c)
		}
	}
	return out
}

// seed stores an entry directly, bypassing the engine
func (l *memLedger) seed(o *order.Order) *ledger.Entry {
	e := ledger.NewEntry(o)
	e.ID = uuid.New()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[e.ID] = *e
	return e
}

type memSummaries struct {
	failures
	mu   sync.Mutex
	rows map[summary.Key]summary.Summary
}

func newMemSummaries() *memSummaries {
	return &memSummaries{rows: make(map[summary.Key]summary.Summary)}
}

func (s *memSummaries) Create(_ context.Context, sum *summary.Summary) error {
	if err := s.check("create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sum.Key] = *sum
	return nil
}

func (s *memSummaries) Update(_ context.Context, sum *summary.Summary) error {
	if err := s.check("update"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[sum.Key]; !ok {
		return summary.ErrSummaryNotFound{Key: sum.Key}
	}
	s.rows[sum.Key] = *sum
	return nil
}

func (s *memSummaries) GetByKey(_ context.Context, key summary.Key) (*summary.Summary, error) {
	if err := s.check("get"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return nil, summary.ErrSummaryNotFound{Key: key}
	}
	return &row, nil
}

type memJournal struct {
	failures
	mu        sync.Mutex
	seq       int64
	recorded  map[int64]shared.Operation
	completed map[int64]bool
}

func newMemJournal() *memJournal {
	return &memJournal{recorded: make(map[int64]shared.Operation), completed: make(map[int64]bool)}
}

func (j *memJournal) Record(_ context.Context, op shared.Operation, _ *order.Order) (int64, error) {
	if err := j.check("record"); err != nil {
		return 0, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.recorded[j.seq] = op
	return j.seq, nil
}

func (j *memJournal) Complete(_ context.Context, id int64) error {
	if err := j.check("complete"); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completed[id] = true
	return nil
}

func (j *memJournal) pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.recorded) - len(j.completed)
}

type refusingLocker struct{}

func (refusingLocker) Obtain(_ context.Context, key string) (lock.Handle, error) {
	return nil, fmt.Errorf("%w: %s", lock.ErrNotObtained, key)
}

// fixture is an engine over in-memory stores
type fixture struct {
	engine    *Engine
	orders    *memOrders
	hand      *memLedger
	bank      *memLedger
	cheque    *memLedger
	summaries *memSummaries
	journal   *memJournal
}

func newFixture() *fixture {
	f := &fixture{
		orders:    newMemOrders(),
		hand:      newMemLedger(ledger.KindCashInHand),
		bank:      newMemLedger(ledger.KindCashInBank),
		cheque:    newMemLedger(ledger.KindCashInCheque),
		summaries: newMemSummaries(),
		journal:   newMemJournal(),
	}
	set, err := ledger.NewSet(f.hand, f.bank, f.cheque)
	if err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.engine = NewEngine(logger, f.orders, set, f.summaries, f.journal, lock.Noop{})
	return f
}

// entries returns every ledger entry for the order across the three ledgers
func (f *fixture) entries(orderNumber string) map[ledger.Kind][]*ledger.Entry {
	out := make(map[ledger.Kind][]*ledger.Entry)
	for _, l := range []*memLedger{f.hand, f.bank, f.cheque} {
		if es := l.byOrder(orderNumber); len(es) > 0 {
			out[l.kind] = es
		}
	}
	return out
}

func (f *fixture) totalEntries(orderNumber string) int {
	n := 0
	for _, es := range f.entries(orderNumber) {
		n += len(es)
	}
	return n
}

func newPurchase(total, paid string, pt shared.PaymentType) *order.Order {
	o := &order.Order{
		Kind:            shared.OrderKindPurchase,
		CounterpartID:   uuid.New(),
		CounterpartName: "Acme Supplies",
		ProductID:       uuid.New(),
		ProductName:     "Rice 25kg",
		WarehouseID:     uuid.New(),
		Quantity:        10,
		Total:           decimal.RequireFromString(total),
	}
	o.Payments = []order.Payment{payment(paid, pt)}
	return o
}

func payment(amount string, pt shared.PaymentType) order.Payment {
	p := order.Payment{
		Amount:      decimal.RequireFromString(amount),
		PaymentType: pt,
		Date:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if pt == shared.PaymentTypeBank {
		p.AccountNumber = "12345678"
	}
	return p
}

// withPayment returns a copy of o whose current payment is replaced
func withPayment(o *order.Order, amount string, pt shared.PaymentType) *order.Order {
	next := o.Clone()
	next.Payments = []order.Payment{payment(amount, pt)}
	return next
}
