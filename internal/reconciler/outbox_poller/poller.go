package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/retail-payment-ledger/internal/config"
	"github.com/retail-payment-ledger/internal/domain/outbox"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/platform/messaging/producers"
	"github.com/retail-payment-ledger/internal/reconciler/service"
	"github.com/retail-payment-ledger/internal/reconciliation"
)

// Poller replays reconciliation intents that an engine call left pending
type Poller struct {
	outboxRepo       outbox.Repository
	replayer         service.IntentReplayer
	dlq              producers.DeadLetterPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	settleDelay      time.Duration
	batchSize        int
	maxRetryAttempts int
	now              func() time.Time
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	replayer service.IntentReplayer,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		replayer:         replayer,
		dlq:              dlq,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		settleDelay:      cfg.SettleDelay,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		now:              time.Now,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"settle_delay", p.settleDelay.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending intents", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.now().Add(-p.settleDelay), p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending intents: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Info("Fetched pending intents", "count", len(messages))
	for _, msg := range messages {
		p.process(ctx, msg)
	}
	return nil
}

func (p *Poller) process(ctx context.Context, msg *outbox.Message) {
	logger := p.logger.With("intent_id", msg.ID, "order_number", msg.OrderNumber)

	err := p.replayer.Replay(ctx, msg)
	if err == nil {
		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusProcessed, ""); err != nil {
			logger.Error("Failed to mark intent processed", "error", err)
		}
		return
	}

	if reconciliation.IsIntegrity(err) || reconciliation.IsValidation(err) {
		logger.Error("Intent cannot converge, marking as FAILED", "error", err)
		p.fail(ctx, logger, msg, err.Error())
		return
	}

	logger.Warn("Intent replay failed", "attempts", msg.Attempts, "error", err)
	if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID, err.Error()); errInc != nil {
		logger.Error("Failed to increment attempts for intent", "error", errInc)
		return
	}
	if msg.Attempts+1 >= p.maxRetryAttempts {
		logger.Warn("Max retry attempts reached for intent, marking as FAILED", "attempts_made", msg.Attempts+1)
		p.fail(ctx, logger, msg, err.Error())
	}
}

func (p *Poller) fail(ctx context.Context, logger *slog.Logger, msg *outbox.Message, reason string) {
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailed, reason); err != nil {
		logger.Error("Failed to mark intent FAILED", "error", err)
		return
	}
	if p.dlq == nil {
		return
	}
	if err := p.dlq.PublishToDLQ(ctx, msg.OrderNumber, msg.Payload, "intent "+strconv.FormatInt(msg.ID, 10)+": "+reason); err != nil {
		logger.Error("Failed to publish failed intent to DLQ", "error", err)
	}
}
