package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, o *order.Order) (reconciliation.Outcome, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(reconciliation.Outcome), args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID, changes *order.Order) (*order.Order, reconciliation.Outcome, error) {
	args := m.Called(ctx, kind, id, changes)
	if args.Get(0) == nil {
		return nil, args.Get(1).(reconciliation.Outcome), args.Error(2)
	}
	return args.Get(0).(*order.Order), args.Get(1).(reconciliation.Outcome), args.Error(2)
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID) (reconciliation.Outcome, error) {
	args := m.Called(ctx, kind, id)
	return args.Get(0).(reconciliation.Outcome), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, kind shared.OrderKind, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, kind shared.OrderKind, page, perPage int) ([]*order.Order, int64, error) {
	args := m.Called(ctx, kind, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) RequestReconcile(ctx context.Context, kind shared.OrderKind, id uuid.UUID, correlationID string) (*shared.ReconcileRequest, error) {
	args := m.Called(ctx, kind, id, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.ReconcileRequest), args.Error(1)
}

// envelope mirrors Response with the payload left raw
type envelope struct {
	Data          json.RawMessage `json:"data"`
	Error         *ErrorInfo      `json:"error"`
	CorrelationID string          `json:"correlation_id"`
	Meta          *MetaInfo       `json:"meta"`
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPurchaseRouter(svc *MockOrderService) *gin.Engine {
	h := NewOrderHandler(newTestLogger(), shared.OrderKindPurchase, svc)
	r := setupTestRouter()
	r.POST("/purchases", h.Create)
	r.GET("/purchases", h.List)
	r.GET("/purchases/:id", h.GetByID)
	r.PUT("/purchases/:id", h.Update)
	r.DELETE("/purchases/:id", h.Delete)
	r.POST("/purchases/:id/reconcile", h.Reconcile)
	return r
}

func serve(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func validRequest() map[string]interface{} {
	return map[string]interface{}{
		"counterpart_id":   uuid.NewString(),
		"counterpart_name": "Acme Supplies",
		"product_name":     "Rice 25kg",
		"quantity":         10,
		"total":            "1000",
		"payments": []map[string]interface{}{
			{"amount": 400, "payment_type": "Cash", "date": "2024-03-01T12:00:00Z"},
		},
	}
}

func storedOrder() *order.Order {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
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
			Date:        at,
		}},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockOrderService)
		entryID := uuid.New()
		svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.Kind == shared.OrderKindPurchase &&
				o.Total.Equal(decimal.NewFromInt(1000)) &&
				len(o.Payments) == 1 &&
				o.Payments[0].PaymentType == shared.PaymentTypeCash
		})).Run(func(args mock.Arguments) {
			o := args.Get(1).(*order.Order)
			o.ID = uuid.New()
			o.OrderNumber = "PUR-20240301-00001"
		}).Return(reconciliation.Outcome{
			Action: reconciliation.ActionCreated,
			To:     ledger.KindCashInHand,
			Entry:  &ledger.Entry{ID: entryID},
		}, nil).Once()

		rr, env := serve(t, newPurchaseRouter(svc), http.MethodPost, "/purchases", validRequest())
		require.Equal(t, http.StatusCreated, rr.Code)

		var data OrderWriteResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.NotNil(t, data.Order)
		assert.Equal(t, "PUR-20240301-00001", data.Order.OrderNumber)
		assert.Equal(t, "400", data.Order.TotalPaid)
		assert.Equal(t, "600", data.Order.Balance)
		assert.Equal(t, string(shared.PaymentStatusPartiallyPaid), data.Order.Status)
		assert.Equal(t, "CREATED", data.Reconciliation.Action)
		assert.Equal(t, "CASH_IN_HAND", data.Reconciliation.To)
		assert.Equal(t, entryID.String(), data.Reconciliation.EntryID)
		svc.AssertExpectations(t)
	})

	t.Run("LedgerPending", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			o := args.Get(1).(*order.Order)
			o.ID = uuid.New()
			o.OrderNumber = "PUR-20240301-00002"
		}).Return(reconciliation.Outcome{
			Action:    reconciliation.ActionPending,
			To:        ledger.KindCashInHand,
			LedgerErr: errors.New("ledger store unavailable"),
		}, nil).Once()

		rr, env := serve(t, newPurchaseRouter(svc), http.MethodPost, "/purchases", validRequest())
		require.Equal(t, http.StatusAccepted, rr.Code)
		assert.Nil(t, env.Error)

		var data OrderWriteResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.NotNil(t, data.Order)
		assert.Equal(t, "PUR-20240301-00002", data.Order.OrderNumber)
		assert.NotEmpty(t, data.Order.ID)
		assert.Equal(t, "PENDING", data.Reconciliation.Action)
		assert.Equal(t, "CASH_IN_HAND", data.Reconciliation.To)
		svc.AssertExpectations(t)
	})

	t.Run("PaymentDateTruncatedToMillis", func(t *testing.T) {
		svc := new(MockOrderService)
		var got *order.Order
		svc.On("CreateOrder", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			got = args.Get(1).(*order.Order)
		}).Return(reconciliation.Outcome{Action: reconciliation.ActionCreated}, nil).Once()

		body := validRequest()
		body["payments"] = []map[string]interface{}{
			{"amount": 400, "payment_type": "Cash", "date": "2024-03-01T12:00:00.123456789Z"},
			{"amount": 0},
		}

		rr, _ := serve(t, newPurchaseRouter(svc), http.MethodPost, "/purchases", body)
		require.Equal(t, http.StatusCreated, rr.Code)
		require.NotNil(t, got)
		require.Len(t, got.Payments, 2)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 123000000, time.UTC), got.Payments[0].Date)
		assert.Zero(t, got.Payments[1].Date.Nanosecond()%int(time.Millisecond), "stamped date is truncated too")
	})

	badBodies := map[string]func(map[string]interface{}){
		"NegativePayment": func(b map[string]interface{}) {
			b["payments"] = []map[string]interface{}{{"amount": "-5", "payment_type": "Cash"}}
		},
		"ZeroTotal": func(b map[string]interface{}) { b["total"] = 0 },
		"UnknownPaymentType": func(b map[string]interface{}) {
			b["payments"] = []map[string]interface{}{{"amount": 5, "payment_type": "Card"}}
		},
		"BankWithoutAccount": func(b map[string]interface{}) {
			b["payments"] = []map[string]interface{}{{"amount": 5, "payment_type": "Bank"}}
		},
		"MissingCounterpart": func(b map[string]interface{}) { delete(b, "counterpart_id") },
		"TotalBeyondFourDecimals": func(b map[string]interface{}) { b["total"] = "10.00005" },
		"PaymentBeyondFourDecimals": func(b map[string]interface{}) {
			b["payments"] = []map[string]interface{}{{"amount": "5.00005", "payment_type": "Cash"}}
		},
	}
	for name, mutate := range badBodies {
		t.Run(name, func(t *testing.T) {
			svc := new(MockOrderService)
			body := validRequest()
			mutate(body)

			rr, env := serve(t, newPurchaseRouter(svc), http.MethodPost, "/purchases", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "BAD_REQUEST", env.Error.Code)
			svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}

	t.Run("MalformedJSON", func(t *testing.T) {
		rr, _ := serve(t, newPurchaseRouter(new(MockOrderService)), http.MethodPost, "/purchases", `{"total":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("PaymentExceedsTotal", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, mock.Anything).
			Return(reconciliation.Outcome{}, &order.ValidationError{Err: order.ErrPaymentExceedsTotal, Details: "total paid 1200 exceeds order total 1000"}).Once()

		body := validRequest()
		body["payments"] = []map[string]interface{}{{"amount": 1200, "payment_type": "Cash"}}

		rr, env := serve(t, newPurchaseRouter(svc), http.MethodPost, "/purchases", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Message, "exceeds order total")
	})
}

func TestOrderHandler_Update(t *testing.T) {
	id := uuid.New()
	path := "/purchases/" + id.String()

	t.Run("Migrated", func(t *testing.T) {
		svc := new(MockOrderService)
		updated := storedOrder()
		updated.ID = id
		updated.Payments[0] = order.Payment{Amount: decimal.NewFromInt(1000), PaymentType: shared.PaymentTypeBank, AccountNumber: "12345678"}
		svc.On("UpdateOrder", mock.Anything, shared.OrderKindPurchase, id, mock.Anything).
			Return(updated, reconciliation.Outcome{
				Action: reconciliation.ActionMigrated,
				From:   ledger.KindCashInHand,
				To:     ledger.KindCashInBank,
			}, nil).Once()

		body := validRequest()
		body["payments"] = []map[string]interface{}{{"amount": 1000, "payment_type": "Bank", "account_number": "12345678"}}

		rr, env := serve(t, newPurchaseRouter(svc), http.MethodPut, path, body)
		require.Equal(t, http.StatusOK, rr.Code)

		var data OrderWriteResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "MIGRATED", data.Reconciliation.Action)
		assert.Equal(t, "CASH_IN_HAND", data.Reconciliation.From)
		assert.Equal(t, "CASH_IN_BANK", data.Reconciliation.To)
		assert.Equal(t, string(shared.PaymentStatusPaid), data.Order.Status)
		assert.Equal(t, "0", data.Order.Balance)
	})

	errorCases := []struct {
		name     string
		err      error
		status   int
		code     string
		retryHdr bool
	}{
		{"NotFound", order.ErrOrderNotFound{ID: id}, http.StatusNotFound, "NOT_FOUND", false},
		{"Integrity", &reconciliation.IntegrityError{OrderNumber: "PUR-20240301-00001", Found: []ledger.Kind{ledger.KindCashInHand, ledger.KindCashInBank}}, http.StatusConflict, "LEDGER_INTEGRITY", false},
		{"Transient", &reconciliation.TransientError{Op: "create", Store: "CASH_IN_BANK", Err: errors.New("timeout")}, http.StatusServiceUnavailable, "RETRY", true},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", false},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockOrderService)
			svc.On("UpdateOrder", mock.Anything, shared.OrderKindPurchase, id, mock.Anything).
				Return(nil, reconciliation.Outcome{}, tc.err).Once()

			rr, env := serve(t, newPurchaseRouter(svc), http.MethodPut, path, validRequest())
			assert.Equal(t, tc.status, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			if tc.retryHdr {
				assert.Equal(t, "1", rr.Header().Get("Retry-After"))
			}
		})
	}

	t.Run("InvalidID", func(t *testing.T) {
		rr, _ := serve(t, newPurchaseRouter(new(MockOrderService)), http.MethodPut, "/purchases/not-a-uuid", validRequest())
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestOrderHandler_Delete(t *testing.T) {
	svc := new(MockOrderService)
	id := uuid.New()
	svc.On("DeleteOrder", mock.Anything, shared.OrderKindPurchase, id).
		Return(reconciliation.Outcome{Action: reconciliation.ActionDeleted, From: ledger.KindCashInHand}, nil).Once()

	rr, env := serve(t, newPurchaseRouter(svc), http.MethodDelete, "/purchases/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var data OrderWriteResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Nil(t, data.Order)
	assert.Equal(t, "DELETED", data.Reconciliation.Action)
}

func TestOrderHandler_GetByID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockOrderService)
		o := storedOrder()
		svc.On("GetOrder", mock.Anything, shared.OrderKindPurchase, o.ID).Return(o, nil).Once()

		rr, env := serve(t, newPurchaseRouter(svc), http.MethodGet, "/purchases/"+o.ID.String(), nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var data OrderResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, o.OrderNumber, data.OrderNumber)
		assert.Equal(t, "400", data.TotalPaid)
		require.Len(t, data.Payments, 1)
		assert.Equal(t, "Cash", data.Payments[0].PaymentType)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockOrderService)
		id := uuid.New()
		svc.On("GetOrder", mock.Anything, shared.OrderKindPurchase, id).Return(nil, order.ErrOrderNotFound{ID: id}).Once()

		rr, _ := serve(t, newPurchaseRouter(svc), http.MethodGet, "/purchases/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestOrderHandler_List(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ListOrders", mock.Anything, shared.OrderKindPurchase, 2, 5).
		Return([]*order.Order{storedOrder(), storedOrder()}, int64(7), nil).Once()

	rr, env := serve(t, newPurchaseRouter(svc), http.MethodGet, "/purchases?page=2&per_page=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.TotalPages)
	assert.Equal(t, 7, env.Meta.TotalItems)

	var data []OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data, 2)

	rr, _ = serve(t, newPurchaseRouter(new(MockOrderService)), http.MethodGet, "/purchases?per_page=500", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_Reconcile(t *testing.T) {
	id := uuid.New()

	t.Run("Accepted", func(t *testing.T) {
		svc := new(MockOrderService)
		request := &shared.ReconcileRequest{RequestID: uuid.New(), OrderID: id, OrderNumber: "PUR-20240301-00001"}
		svc.On("RequestReconcile", mock.Anything, shared.OrderKindPurchase, id, "").Return(request, nil).Once()

		rr, env := serve(t, newPurchaseRouter(svc), http.MethodPost, "/purchases/"+id.String()+"/reconcile", nil)
		require.Equal(t, http.StatusAccepted, rr.Code)

		var data ReconcileAcceptedResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, request.RequestID.String(), data.RequestID)
		assert.Equal(t, "PENDING", data.Status)
	})

	t.Run("PublishFailure", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("RequestReconcile", mock.Anything, shared.OrderKindPurchase, id, "").
			Return(nil, errors.New("broker down")).Once()

		rr, env := serve(t, newPurchaseRouter(svc), http.MethodPost, "/purchases/"+id.String()+"/reconcile", nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", env.Error.Code)
	})
}
