package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/retail-payment-ledger/internal/config"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaReader wraps kafka.Reader methods for testing
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer with a kafka-go consumer group reader.
// Offsets are committed only after the handler succeeds. Commits are cumulative
// per partition, so a failed message is handled again before the next is fetched.
type KafkaConsumer struct {
	reader        KafkaReader
	logger        *slog.Logger
	topic         string
	groupID       string
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}

	return &KafkaConsumer{
		logger:     logger,
		topic:         cfg.ReconcileTopic,
		groupID:       cfg.ConsumerGroup,
		retryDelay:    cfg.RetryBackoff,
		maxRetryDelay: cfg.MaxRetryBackoff,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.ReconcileTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
	}
}

// Subscribe starts consuming in the background until ctx is cancelled
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)
	go c.run(ctx, handler)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if !c.handle(ctx, handler, msg) {
			c.logger.Info("Context canceled, stopping consumer before commit",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset)
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
		}
	}
}

// handle runs handler on msg until it succeeds, doubling the pause between
// attempts up to maxRetryDelay. It returns false if ctx ended first.
func (c *KafkaConsumer) handle(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return true
		}
		c.logger.Error("Failed to process message, retrying before next fetch",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay *= 2
		if c.maxRetryDelay > 0 && delay > c.maxRetryDelay {
			delay = c.maxRetryDelay
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
