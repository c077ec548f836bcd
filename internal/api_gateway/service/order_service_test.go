package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/domain/ledger"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/reconciliation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func storedPurchase() *order.Order {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:              uuid.New(),
		OrderNumber:     "PUR-20240301-00001",
		Kind:            shared.OrderKindPurchase,
		CounterpartID:   uuid.New(),
		CounterpartName: "Acme Supplies",
		Quantity:        10,
		Total:           decimal.NewFromInt(1000),
		Payments: []order.Payment{{
			Amount:      decimal.NewFromInt(400),
			PaymentType: shared.PaymentTypeCash,
			Date:        created,
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		engine := new(MockEngine)
		svc := NewOrderService(newTestLogger(), engine, new(MockOrderRepository), nil)

		o := storedPurchase()
		want := reconciliation.Outcome{Action: reconciliation.ActionCreated, To: ledger.KindCashInHand}
		engine.On("OnOrderCreated", ctx, o).Return(want, nil).Once()

		got, err := svc.CreateOrder(ctx, o)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		engine.AssertExpectations(t)
	})

	t.Run("LedgerPending", func(t *testing.T) {
		engine := new(MockEngine)
		svc := NewOrderService(newTestLogger(), engine, new(MockOrderRepository), nil)

		o := storedPurchase()
		pending := reconciliation.Outcome{Action: reconciliation.ActionPending, To: ledger.KindCashInHand, LedgerErr: errors.New("timeout")}
		engine.On("OnOrderCreated", ctx, o).Return(pending, nil).Once()

		got, err := svc.CreateOrder(ctx, o)
		require.NoError(t, err)
		assert.True(t, got.Pending())
	})

	t.Run("ValidationError", func(t *testing.T) {
		engine := new(MockEngine)
		svc := NewOrderService(newTestLogger(), engine, new(MockOrderRepository), nil)

		o := storedPurchase()
		engine.On("OnOrderCreated", ctx, o).Return(reconciliation.Outcome{}, &order.ValidationError{Err: order.ErrPaymentExceedsTotal}).Once()

		_, err := svc.CreateOrder(ctx, o)
		assert.True(t, reconciliation.IsValidation(err))
	})
}

func TestOrderService_UpdateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("KeepsIdentity", func(t *testing.T) {
		engine, orders := new(MockEngine), new(MockOrderRepository)
		svc := NewOrderService(newTestLogger(), engine, orders, nil)

		prev := storedPurchase()
		orders.On("GetByID", ctx, prev.ID).Return(prev, nil).Once()

		changes := &order.Order{
			Kind:            shared.OrderKindSales,
			OrderNumber:     "SAL-20990101-99999",
			CounterpartID:   prev.CounterpartID,
			CounterpartName: prev.CounterpartName,
			Quantity:        prev.Quantity,
			Total:           prev.Total,
			Payments: []order.Payment{{
				Amount:        decimal.NewFromInt(700),
				PaymentType:   shared.PaymentTypeBank,
				AccountNumber: "12345678",
			}},
		}

		identityKept := mock.MatchedBy(func(next *order.Order) bool {
			return next.ID == prev.ID &&
				next.OrderNumber == prev.OrderNumber &&
				next.Kind == shared.OrderKindPurchase &&
				next.CreatedAt.Equal(prev.CreatedAt) &&
				next.TotalPaid().Equal(decimal.NewFromInt(700))
		})
		want := reconciliation.Outcome{Action: reconciliation.ActionMigrated, From: ledger.KindCashInHand, To: ledger.KindCashInBank}
		engine.On("OnOrderUpdated", ctx, prev, identityKept).Return(want, nil).Once()

		next, got, err := svc.UpdateOrder(ctx, shared.OrderKindPurchase, prev.ID, changes)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, prev.OrderNumber, next.OrderNumber)
		assert.Equal(t, "SAL-20990101-99999", changes.OrderNumber, "changes must not be modified")
		engine.AssertExpectations(t)
	})

	t.Run("WrongKind", func(t *testing.T) {
		engine, orders := new(MockEngine), new(MockOrderRepository)
		svc := NewOrderService(newTestLogger(), engine, orders, nil)

		prev := storedPurchase()
		orders.On("GetByID", ctx, prev.ID).Return(prev, nil).Once()

		_, _, err := svc.UpdateOrder(ctx, shared.OrderKindSales, prev.ID, prev.Clone())
		assert.ErrorIs(t, err, order.ErrOrderNotFound{})
		engine.AssertNotCalled(t, "OnOrderUpdated", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("TransientError", func(t *testing.T) {
		engine, orders := new(MockEngine), new(MockOrderRepository)
		svc := NewOrderService(newTestLogger(), engine, orders, nil)

		prev := storedPurchase()
		orders.On("GetByID", ctx, prev.ID).Return(prev, nil).Once()
		engine.On("OnOrderUpdated", ctx, prev, mock.Anything).
			Return(reconciliation.Outcome{}, &reconciliation.TransientError{Op: "update", Store: "order store", Err: errors.New("timeout")}).Once()

		next, _, err := svc.UpdateOrder(ctx, shared.OrderKindPurchase, prev.ID, prev.Clone())
		assert.Nil(t, next)
		assert.True(t, reconciliation.IsTransient(err))
	})
}

func TestOrderService_DeleteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		engine, orders := new(MockEngine), new(MockOrderRepository)
		svc := NewOrderService(newTestLogger(), engine, orders, nil)

		o := storedPurchase()
		orders.On("GetByID", ctx, o.ID).Return(o, nil).Once()
		want := reconciliation.Outcome{Action: reconciliation.ActionDeleted, From: ledger.KindCashInHand}
		engine.On("OnOrderDeleted", ctx, o).Return(want, nil).Once()

		got, err := svc.DeleteOrder(ctx, shared.OrderKindPurchase, o.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		engine, orders := new(MockEngine), new(MockOrderRepository)
		svc := NewOrderService(newTestLogger(), engine, orders, nil)

		id := uuid.New()
		orders.On("GetByID", ctx, id).Return(nil, order.ErrOrderNotFound{ID: id}).Once()

		_, err := svc.DeleteOrder(ctx, shared.OrderKindPurchase, id)
		assert.ErrorIs(t, err, order.ErrOrderNotFound{})
		engine.AssertNotCalled(t, "OnOrderDeleted", mock.Anything, mock.Anything)
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	svc := NewOrderService(newTestLogger(), new(MockEngine), orders, nil)

	page := []*order.Order{storedPurchase(), storedPurchase()}
	orders.On("List", ctx, shared.OrderKindPurchase, 2, 4).Return(page, nil).Once()
	orders.On("Count", ctx, shared.OrderKindPurchase).Return(int64(6), nil).Once()

	got, total, err := svc.ListOrders(ctx, shared.OrderKindPurchase, 3, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(6), total)

	orders.On("List", ctx, shared.OrderKindSales, 10, 0).Return(nil, errors.New("db down")).Once()
	_, _, err = svc.ListOrders(ctx, shared.OrderKindSales, 1, 10)
	assert.Error(t, err)
}

func TestOrderService_RequestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes", func(t *testing.T) {
		orders, producer := new(MockOrderRepository), new(MockRequestPublisher)
		svc := NewOrderService(newTestLogger(), new(MockEngine), orders, producer)

		o := storedPurchase()
		orders.On("GetByID", ctx, o.ID).Return(o, nil).Once()
		producer.On("PublishRequest", ctx, mock.MatchedBy(func(r *shared.ReconcileRequest) bool {
			return r.OrderID == o.ID && r.OrderNumber == o.OrderNumber && r.CorrelationID == "corr-9"
		})).Return(nil).Once()

		request, err := svc.RequestReconcile(ctx, shared.OrderKindPurchase, o.ID, "corr-9")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, request.RequestID)
		assert.Equal(t, shared.OrderKindPurchase, request.Kind)
		producer.AssertExpectations(t)
	})

	t.Run("PublishFailure", func(t *testing.T) {
		orders, producer := new(MockOrderRepository), new(MockRequestPublisher)
		svc := NewOrderService(newTestLogger(), new(MockEngine), orders, producer)

		o := storedPurchase()
		orders.On("GetByID", ctx, o.ID).Return(o, nil).Once()
		producer.On("PublishRequest", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		_, err := svc.RequestReconcile(ctx, shared.OrderKindPurchase, o.ID, "")
		assert.EqualError(t, err, "broker down")
	})

	t.Run("OtherKind", func(t *testing.T) {
		orders, producer := new(MockOrderRepository), new(MockRequestPublisher)
		svc := NewOrderService(newTestLogger(), new(MockEngine), orders, producer)

		o := storedPurchase()
		orders.On("GetByID", ctx, o.ID).Return(o, nil).Once()

		_, err := svc.RequestReconcile(ctx, shared.OrderKindSales, o.ID, "")
		assert.ErrorIs(t, err, order.ErrOrderNotFound{})
		producer.AssertNotCalled(t, "PublishRequest", mock.Anything, mock.Anything)
	})
}
