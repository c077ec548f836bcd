package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/ledger"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/reconciliation"
	"github.com/stretchr/testify/mock"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) OnOrderCreated(ctx context.Context, o *order.Order) (reconciliation.Outcome, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(reconciliation.Outcome), args.Error(1)
}

func (m *MockEngine) OnOrderUpdated(ctx context.Context, prev, next *order.Order) (reconciliation.Outcome, error) {
	args := m.Called(ctx, prev, next)
	return args.Get(0).(reconciliation.Outcome), args.Error(1)
}

func (m *MockEngine) OnOrderDeleted(ctx context.Context, o *order.Order) (reconciliation.Outcome, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(reconciliation.Outcome), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, kind shared.OrderKind, limit, offset int) ([]*order.Order, error) {
	args := m.Called(ctx, kind, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, kind shared.OrderKind) (int64, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(int64), args.Error(1)
}

type MockRequestPublisher struct {
	mock.Mock
}

func (m *MockRequestPublisher) PublishRequest(ctx context.Context, req *shared.ReconcileRequest) error {
	return m.Called(ctx, req).Error(0)
}

type MockLedgerRepository struct {
	mock.Mock
	kind ledger.Kind
}

func (m *MockLedgerRepository) Kind() ledger.Kind { return m.kind }

func (m *MockLedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepository) Update(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLedgerRepository) FindByOrderNumber(ctx context.Context, orderNumber string) ([]*ledger.Entry, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) List(ctx context.Context, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
