package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retail-payment-ledger/internal/api_gateway/handler"
	"github.com/retail-payment-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	purchaseHandler *handler.OrderHandler,
	salesHandler *handler.OrderHandler,
	ledgerHandler *handler.LedgerHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		registerOrderRoutes(v1.Group("/purchases"), purchaseHandler)
		registerOrderRoutes(v1.Group("/sales"), salesHandler)

		// Ledgers are written only by reconciliation
		v1.GET("/ledgers/:ledger", ledgerHandler.List)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}

func registerOrderRoutes(g *gin.RouterGroup, h *handler.OrderHandler) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/reconcile", h.Reconcile)
}
