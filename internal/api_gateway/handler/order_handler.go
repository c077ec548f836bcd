package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-payment-ledger/internal/api_gateway/middleware"
	"github.com/retail-payment-ledger/internal/api_gateway/service"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

// OrderHandler handles HTTP requests for one kind of order. Purchases and
// sales each get their own handler.
type OrderHandler struct {
	kind         shared.OrderKind
	orderService service.OrderService
	logger       *slog.Logger
	now          func() time.Time
}

// NewOrderHandler creates a new order handler for kind
func NewOrderHandler(logger *slog.Logger, kind shared.OrderKind, orderService service.OrderService) *OrderHandler {
	RegisterValidations()
	return &OrderHandler{
		kind:         kind,
		orderService: orderService,
		logger:       logger.With("kind", string(kind)),
		now:          time.Now,
	}
}

// Create stores a new order and records its ledger entry. A stored order whose
// ledger write was deferred is answered with 202, never with a retryable error.
func (h *OrderHandler) Create(c *gin.Context) {
	logger := h.requestLogger(c)

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	o, err := h.toOrder(&req)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	outcome, err := h.orderService.CreateOrder(c.Request.Context(), o)
	if err != nil {
		respondServiceError(c, logger, err)
		return
	}

	response := OrderWriteResponse{
		Order:          mapOrderToResponse(o),
		Reconciliation: mapOutcomeToResponse(outcome),
	}
	if outcome.Pending() {
		// Stored; the ledger entry follows once the reconciler replays the intent.
		RespondAccepted(c, response)
		return
	}
	RespondCreated(c, response)
}

// Update replaces the order's mutable fields and reconciles its ledger entry
func (h *OrderHandler) Update(c *gin.Context) {
	logger := h.requestLogger(c)

	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	changes, err := h.toOrder(&req)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	updated, outcome, err := h.orderService.UpdateOrder(c.Request.Context(), h.kind, id, changes)
	if err != nil {
		respondServiceError(c, logger.With("order_id", id.String()), err)
		return
	}

	RespondOK(c, OrderWriteResponse{
		Order:          mapOrderToResponse(updated),
		Reconciliation: mapOutcomeToResponse(outcome),
	})
}

// Delete removes the order and its ledger entry
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	outcome, err := h.orderService.DeleteOrder(c.Request.Context(), h.kind, id)
	if err != nil {
		respondServiceError(c, h.requestLogger(c).With("order_id", id.String()), err)
		return
	}

	RespondOK(c, OrderWriteResponse{Reconciliation: mapOutcomeToResponse(outcome)})
}

// GetByID returns one order, 404 if it doesn't exist or is of the other kind
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), h.kind, id)
	if err != nil {
		respondServiceError(c, h.requestLogger(c).With("order_id", id.String()), err)
		return
	}

	RespondOK(c, mapOrderToResponse(o))
}

// List returns a page of orders
func (h *OrderHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), h.kind, pagination.Page, pagination.PerPage)
	if err != nil {
		respondServiceError(c, h.requestLogger(c), err)
		return
	}

	responses := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, mapOrderToResponse(o))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Reconcile queues an asynchronous repair of the order's ledger state
func (h *OrderHandler) Reconcile(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	request, err := h.orderService.RequestReconcile(c.Request.Context(), h.kind, id, middleware.GetCorrelationID(c))
	if err != nil {
		respondServiceError(c, h.requestLogger(c).With("order_id", id.String()), err)
		return
	}

	RespondAccepted(c, ReconcileAcceptedResponse{
		RequestID:   request.RequestID.String(),
		OrderNumber: request.OrderNumber,
		Status:      "PENDING",
	})
}

func (h *OrderHandler) requestLogger(c *gin.Context) *slog.Logger {
	if id := middleware.GetCorrelationID(c); id != "" {
		return h.logger.With("correlation_id", id)
	}
	return h.logger
}

func (h *OrderHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid order ID")
		return uuid.Nil, false
	}
	return id, true
}

// toOrder builds the domain order from a bound request. Payments without a
// date are stamped with the current time; every date is cut to DatePrecision.
func (h *OrderHandler) toOrder(req *OrderRequest) (*order.Order, error) {
	o := &order.Order{
		Kind:            h.kind,
		CounterpartName: req.CounterpartName,
		ProductName:     req.ProductName,
		Quantity:        req.Quantity,
		Total:           req.Total,
		Payments:        make([]order.Payment, 0, len(req.Payments)),
	}

	var err error
	if o.CounterpartID, err = uuid.Parse(req.CounterpartID); err != nil {
		return nil, err
	}
	if req.ProductID != "" {
		if o.ProductID, err = uuid.Parse(req.ProductID); err != nil {
			return nil, err
		}
	}
	if req.WarehouseID != "" {
		if o.WarehouseID, err = uuid.Parse(req.WarehouseID); err != nil {
			return nil, err
		}
	}

	for _, p := range req.Payments {
		date := h.now()
		if p.Date != nil {
			date = *p.Date
		}
		o.Payments = append(o.Payments, order.Payment{
			Amount:        p.Amount,
			PaymentType:   shared.PaymentType(p.PaymentType),
			AccountNumber: p.AccountNumber,
			Note:          p.Note,
			Date:          order.PaymentDate(date),
		})
	}
	return o, nil
}

func mapOrderToResponse(o *order.Order) *OrderResponse {
	response := &OrderResponse{
		ID:              o.ID.String(),
		OrderNumber:     o.OrderNumber,
		Kind:            string(o.Kind),
		CounterpartID:   o.CounterpartID.String(),
		CounterpartName: o.CounterpartName,
		ProductName:     o.ProductName,
		Quantity:        o.Quantity,
		Total:           o.Total.String(),
		TotalPaid:       o.TotalPaid().String(),
		Balance:         o.Balance().String(),
		Status:          string(o.Status()),
		Payments:        make([]PaymentResponse, 0, len(o.Payments)),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
	if o.ProductID != uuid.Nil {
		response.ProductID = o.ProductID.String()
	}
	if o.WarehouseID != uuid.Nil {
		response.WarehouseID = o.WarehouseID.String()
	}

	for _, p := range o.Payments {
		response.Payments = append(response.Payments, PaymentResponse{
			Amount:        p.Amount.String(),
			PaymentType:   string(p.PaymentType),
			AccountNumber: p.AccountNumber,
			Note:          p.Note,
			Date:          p.Date.Format(time.RFC3339),
		})
	}
	return response
}

func mapOutcomeToResponse(outcome reconciliation.Outcome) ReconciliationResponse {
	response := ReconciliationResponse{
		Action:         string(outcome.Action),
		From:           string(outcome.From),
		To:             string(outcome.To),
		SummaryWarning: outcome.SummaryWarning(),
	}
	if outcome.Entry != nil {
		response.EntryID = outcome.Entry.ID.String()
	}
	return response
}
