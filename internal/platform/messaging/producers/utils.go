package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/retail-payment-ledger/internal/config"
)

// topicAdmin is the part of kafka.Conn used to inspect and create topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates topic unless a partition read finds it. Reads are tried
// cfg.TopicCheckAttempts times, cfg.TopicCheckInterval apart; an unknown topic
// is created straight away.
func ensureTopic(ctx context.Context, log *slog.Logger, admin topicAdmin, topic string, cfg *config.KafkaConfig) error {
	attempts := max(cfg.TopicCheckAttempts, 1)

	var readErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		partitions, err := admin.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topic, "partitions", len(partitions))
			return nil
		}
		readErr = err
		if errors.Is(err, kafka.UnknownTopicOrPartition) || attempt == attempts {
			break
		}

		log.Warn("Failed to read Kafka topic partitions, retrying",
			"topic", topic,
			"attempt", attempt,
			"error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("stopped checking kafka topic %s: %w", topic, ctx.Err())
		case <-time.After(cfg.TopicCheckInterval):
		}
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(cfg.NumPartitions, 1),
		ReplicationFactor: max(cfg.ReplicationFactor, 1),
	}
	log.Info("Creating Kafka topic",
		"topic", topic,
		"partitions", topicConfig.NumPartitions,
		"replication_factor", topicConfig.ReplicationFactor,
		"read_error", readErr)

	if err := admin.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}
