package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	DefaultFlushTimeout = 15 * time.Second
	messageMaxBytes     = 1048576 // 1MB, events are small JSON documents
)

// ProducerConfig holds the configuration of the measurement event producer.
type ProducerConfig struct {
	Brokers           string        `env:"KAFKA_BROKERS"                   envDefault:"localhost:9092"`    // Kafka broker addresses
	Topic             string        `env:"KAFKA_TOPIC"                     envDefault:"measurements"`      // Topic measurement events are produced to
	ClientID          string        `env:"KAFKA_CLIENT_ID"                 envDefault:"measurementsyncer"` // Client ID reported to the brokers
	NumPartitions     int           `env:"KAFKA_TOPIC_NUM_PARTITIONS"      envDefault:"1"`
	ReplicationFactor int           `env:"KAFKA_TOPIC_REPLICATION_FACTOR"  envDefault:"1"`
	EnableLogs        bool          `env:"KAFKA_ENABLE_LOGS"               envDefault:"false"` // Enable librdkafka client logs
	FlushTimeout      time.Duration `env:"KAFKA_FLUSH_TIMEOUT"             envDefault:"15s"`   // Flush timeout on Close
	SASL              SASLConfig    `envPrefix:"KAFKA_"`
}

// LoadProducerConfig loads the producer configuration from environment variables.
func LoadProducerConfig() (ProducerConfig, error) {
	var cfg ProducerConfig
	if err := env.Parse(&cfg); err != nil {
		return ProducerConfig{}, fmt.Errorf("failed to parse kafka producer config: %w", err)
	}
	return cfg, nil
}

func (c ProducerConfig) Validate() error {
	if c.Brokers == "" {
		return errors.New("kafka brokers must not be empty")
	}
	if c.FlushTimeout < 0 {
		return errors.New("kafka flush timeout must not be negative")
	}
	if err := c.validateTopic(); err != nil {
		return err
	}
	return c.SASL.Validate()
}

func (c ProducerConfig) validateTopic() error {
	if c.Topic == "" {
		return errors.New("kafka topic name must not be empty")
	}
	if c.NumPartitions <= 0 {
		return fmt.Errorf("kafka topic partitions must be > 0, got %d", c.NumPartitions)
	}
	if c.ReplicationFactor <= 0 {
		return fmt.Errorf("kafka topic replication factor must be > 0, got %d", c.ReplicationFactor)
	}
	return nil
}

// ConfigMap builds the librdkafka producer configuration.
func (c ProducerConfig) ConfigMap() *kafka.ConfigMap {
	cfg := &kafka.ConfigMap{
		"bootstrap.servers": c.Brokers,
		"client.id":         c.ClientID,

		// Wait for all in-sync replicas to acknowledge
		"acks": "all",

		"linger.ms":        5,
		"batch.size":       16384,
		"compression.type": "lz4",

		// Retries after a broker error must not reorder or duplicate within a partition
		"enable.idempotence": true,

		"go.logs.channel.enable": c.EnableLogs,
		"message.max.bytes":      messageMaxBytes,
	}
	c.SASL.ApplyToConfigMap(cfg)
	return cfg
}

// AdminConfigMap builds the configuration of an admin client for the same cluster.
func (c ProducerConfig) AdminConfigMap() *kafka.ConfigMap {
	cfg := &kafka.ConfigMap{"bootstrap.servers": c.Brokers}
	c.SASL.ApplyToConfigMap(cfg)
	return cfg
}
