package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/retail-payment-ledger/internal/domain/shared"
)

// WorkerPoolReconcileService bounds how many reconciliations run at once.
// Handle blocks until its request has been processed.
type WorkerPoolReconcileService struct {
	baseService ReconcileService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolReconcileService(
	baseService ReconcileService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolReconcileService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolReconcileService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// Handle submits the request to the pool and waits for its result
func (s *WorkerPoolReconcileService) Handle(ctx context.Context, request *shared.ReconcileRequest) error {
	requestCopy := *request
	resultChan := make(chan error, 1)

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.Handle(ctx, &requestCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit reconcile request to worker pool",
			"request_id", request.RequestID.String(),
			"order_number", request.OrderNumber,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool. Running tasks finish on their own.
func (s *WorkerPoolReconcileService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolReconcileService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolReconcileService) Capacity() int {
	return s.pool.Cap()
}
