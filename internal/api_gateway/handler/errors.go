package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

// respondServiceError maps an engine or service error to its HTTP status:
// validation 400, missing order 404, ledger integrity 409, transient 503.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case reconciliation.IsValidation(err):
		logger.Warn("Order rejected", "error", err)
		RespondValidationError(c, err.Error())
	case errors.Is(err, order.ErrOrderNotFound{}):
		RespondNotFound(c, "Order not found")
	case reconciliation.IsIntegrity(err):
		logger.Error("Ledger integrity violation", "error", err)
		RespondConflict(c, "LEDGER_INTEGRITY", err.Error())
	case reconciliation.IsTransient(err):
		logger.Warn("Order operation failed, client may retry", "error", err)
		RespondServiceUnavailable(c, "RETRY", err.Error())
	default:
		logger.Error("Order operation failed", "error", err)
		RespondInternalError(c)
	}
}
