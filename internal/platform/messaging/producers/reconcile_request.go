package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/retail-payment-ledger/internal/config"
	"github.com/retail-payment-ledger/internal/domain/shared"
)

// ReconcileRequestProducer publishes repair requests for the reconciler.
// Messages are keyed by order number so requests for one order stay on one partition.
type ReconcileRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewReconcileRequestProducer ensures the reconcile topic exists and opens a synchronous writer
func NewReconcileRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ReconcileRequestProducer, error) {
	if cfg.ReconcileTopic == "" {
		return nil, fmt.Errorf("kafka reconcile topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for reconcile request producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(ctx, logger, conn, cfg.ReconcileTopic, cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure reconcile topic %s exists: %w", cfg.ReconcileTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ReconcileTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &ReconcileRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ReconcileTopic,
	}, nil
}

var _ RequestPublisher = (*ReconcileRequestProducer)(nil)

// PublishRequest publishes a reconcile request keyed by its order number
func (p *ReconcileRequestProducer) PublishRequest(ctx context.Context, req *shared.ReconcileRequest) error {
	return p.publish(ctx, req.OrderNumber, req)
}

// publish writes one value as JSON under key
func (p *ReconcileRequestProducer) publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal reconcile request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish reconcile request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published reconcile request", "topic", p.topic, "key", key)
	return nil
}

func (p *ReconcileRequestProducer) Close() error {
	p.logger.Info("Closing reconcile request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
