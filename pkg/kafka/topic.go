package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const metadataTimeout = 10 * time.Second

// TopicAdmin is the part of *kafka.AdminClient used to prepare the event topic.
type TopicAdmin interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error)
	CreatePartitions(ctx context.Context, partitions []kafka.PartitionsSpecification, options ...kafka.CreatePartitionsAdminOption) ([]kafka.TopicResult, error)
}

// EnsureTopic makes sure the topic measurement events are produced to exists
// before the first cycle publishes. A missing topic is created with the
// configured partitions and replication factor. An existing topic is grown to
// the configured partition count; it is never shrunk and its replication
// factor is left as is.
func EnsureTopic(ctx context.Context, admin TopicAdmin, cfg ProducerConfig, log *zap.SugaredLogger) error {
	if err := cfg.validateTopic(); err != nil {
		return fmt.Errorf("invalid event topic: %w", err)
	}

	partitions, replicas, found, err := describeTopic(admin, cfg.Topic)
	if err != nil {
		return err
	}
	if !found {
		return createTopic(ctx, admin, cfg, log)
	}

	log = log.With("topic", cfg.Topic, "partitions", partitions)
	if replicas != cfg.ReplicationFactor {
		log.Warnw("event topic replication factor differs from configuration",
			"replicationFactor", replicas,
			"configured", cfg.ReplicationFactor,
		)
	}
	switch {
	case partitions < cfg.NumPartitions:
		return growTopic(ctx, admin, cfg.Topic, cfg.NumPartitions, log)
	case partitions > cfg.NumPartitions:
		log.Warnw("event topic has more partitions than configured, keeping them",
			"configured", cfg.NumPartitions,
		)
	default:
		log.Debug("event topic ready")
	}
	return nil
}

// describeTopic reports the partition count and replicas per partition of
// topic. found is false when the brokers do not know the topic.
func describeTopic(admin TopicAdmin, topic string) (partitions, replicas int, found bool, err error) {
	md, err := admin.GetMetadata(&topic, false, int(metadataTimeout.Milliseconds()))
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to read metadata of topic %q: %w", topic, err)
	}
	tm, ok := md.Topics[topic]
	if !ok || tm.Error.Code() == kafka.ErrUnknownTopicOrPart {
		return 0, 0, false, nil
	}
	if tm.Error.Code() != kafka.ErrNoError {
		return 0, 0, false, fmt.Errorf("topic %q metadata: %w", topic, tm.Error)
	}
	if len(tm.Partitions) > 0 {
		replicas = len(tm.Partitions[0].Replicas)
	}
	return len(tm.Partitions), replicas, true, nil
}

func createTopic(ctx context.Context, admin TopicAdmin, cfg ProducerConfig, log *zap.SugaredLogger) error {
	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             cfg.Topic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic %q: %w", cfg.Topic, err)
	}
	for _, res := range results {
		switch res.Error.Code() {
		case kafka.ErrNoError:
			log.Infow("created event topic",
				"topic", res.Topic,
				"partitions", cfg.NumPartitions,
				"replicationFactor", cfg.ReplicationFactor,
			)
		case kafka.ErrTopicAlreadyExists:
			// another instance won the race
			log.Infow("event topic created concurrently", "topic", res.Topic)
		default:
			return fmt.Errorf("failed to create topic %q: %w", res.Topic, res.Error)
		}
	}
	return nil
}

func growTopic(ctx context.Context, admin TopicAdmin, topic string, to int, log *zap.SugaredLogger) error {
	results, err := admin.CreatePartitions(ctx, []kafka.PartitionsSpecification{{Topic: topic, IncreaseTo: to}})
	if err != nil {
		return fmt.Errorf("failed to grow topic %q: %w", topic, err)
	}
	for _, res := range results {
		if res.Error.Code() != kafka.ErrNoError {
			return fmt.Errorf("failed to grow topic %q: %w", res.Topic, res.Error)
		}
	}
	log.Infow("grew event topic", "to", to)
	return nil
}
