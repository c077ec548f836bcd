package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retail-payment-ledger/internal/api_gateway/service"
	"github.com/retail-payment-ledger/internal/domain/ledger"
)

// LedgerHandler serves the three ledgers read-only
type LedgerHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// List returns a page of one ledger's entries, newest payment first.
// The ledger is named by slug (cash-in-hand) or constant (CASH_IN_HAND).
func (h *LedgerHandler) List(c *gin.Context) {
	kind, err := ledger.ParseKind(c.Param("ledger"))
	if err != nil {
		RespondNotFound(c, "Ledger not found")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.ledgerService.ListEntries(c.Request.Context(), kind, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list ledger entries", "ledger", string(kind), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapLedgerEntryToResponse(kind, entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

func mapLedgerEntryToResponse(kind ledger.Kind, entry *ledger.Entry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              entry.ID.String(),
		Ledger:          string(kind),
		OrderNumber:     entry.OrderNumber,
		Source:          string(entry.Source),
		CounterpartName: entry.CounterpartName,
		ProductName:     entry.ProductName,
		Quantity:        entry.Quantity,
		TotalAmount:     entry.TotalAmount.String(),
		AmountPaid:      entry.AmountPaid.String(),
		Balance:         entry.Balance.String(),
		PaymentType:     string(entry.PaymentType),
		AccountNumber:   entry.AccountNumber,
		Note:            entry.Note,
		Date:            entry.Date.Format(time.RFC3339),
		UpdatedAt:       entry.UpdatedAt.Format(time.RFC3339),
	}
}
