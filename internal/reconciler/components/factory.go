package components

import (
	"log/slog"

	"github.com/retail-payment-ledger/internal/config"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/reconciler/service"
)

// Reconciler bundles the request service with the replayer used by the outbox poller
type Reconciler struct {
	Service  service.ReconcileService
	Replayer service.IntentReplayer
	pool     *service.WorkerPoolReconcileService
}

// Shutdown releases the worker pool, if one was created
func (r *Reconciler) Shutdown() {
	if r.pool != nil {
		r.pool.Shutdown()
	}
}

// CreateReconciler builds the reconcile service on a worker pool, falling back
// to inline processing if the pool cannot be created.
func CreateReconciler(
	engine service.Engine,
	orders order.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) *Reconciler {
	baseService := service.NewReconcileService(logger, engine, orders)
	r := &Reconciler{Service: baseService, Replayer: baseService}

	pool, err := service.NewWorkerPoolReconcileService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return r
	}

	logger.Info("Created worker pool reconcile service", "pool_size", cfg.WorkerPool.Size)
	r.Service = pool
	r.pool = pool
	return r
}
