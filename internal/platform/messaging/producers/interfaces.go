package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/retail-payment-ledger/internal/domain/shared"
)

// RequestPublisher queues reconcile requests for the reconciler
type RequestPublisher interface {
	PublishRequest(ctx context.Context, req *shared.ReconcileRequest) error
}

// DeadLetterPublisher parks messages the reconciler gave up on
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
}

// KafkaWriter is the part of kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
