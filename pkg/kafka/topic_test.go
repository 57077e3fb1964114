package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error) {
	args := m.Called(*topic, allTopics, timeoutMs)
	md, _ := args.Get(0).(*kafka.Metadata)
	return md, args.Error(1)
}

func (m *mockAdmin) CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, _ ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error) {
	args := m.Called(ctx, topics)
	res, _ := args.Get(0).([]kafka.TopicResult)
	return res, args.Error(1)
}

func (m *mockAdmin) CreatePartitions(ctx context.Context, partitions []kafka.PartitionsSpecification, _ ...kafka.CreatePartitionsAdminOption) ([]kafka.TopicResult, error) {
	args := m.Called(ctx, partitions)
	res, _ := args.Get(0).([]kafka.TopicResult)
	return res, args.Error(1)
}

func metadataWith(topic string, partitions, replicas int) *kafka.Metadata {
	tm := kafka.TopicMetadata{Topic: topic}
	for i := range partitions {
		pm := kafka.PartitionMetadata{ID: int32(i)}
		for r := range replicas {
			pm.Replicas = append(pm.Replicas, int32(r))
		}
		tm.Partitions = append(tm.Partitions, pm)
	}
	return &kafka.Metadata{Topics: map[string]kafka.TopicMetadata{topic: tm}}
}

func noTopics() *kafka.Metadata {
	return &kafka.Metadata{Topics: map[string]kafka.TopicMetadata{}}
}

var eventTopic = ProducerConfig{
	Brokers:           "localhost:9092",
	Topic:             "measurements",
	NumPartitions:     3,
	ReplicationFactor: 1,
}

func TestEnsureTopic_Creates(t *testing.T) {
	t.Parallel()
	admin := &mockAdmin{}
	admin.On("GetMetadata", "measurements", false, mock.Anything).Return(noTopics(), nil)
	admin.On("CreateTopics", mock.Anything, []kafka.TopicSpecification{{
		Topic: "measurements", NumPartitions: 3, ReplicationFactor: 1,
	}}).Return([]kafka.TopicResult{{Topic: "measurements"}}, nil)

	require.NoError(t, EnsureTopic(t.Context(), admin, eventTopic, zaptest.NewLogger(t).Sugar()))
	admin.AssertExpectations(t)
}

func TestEnsureTopic_CreatedConcurrently(t *testing.T) {
	t.Parallel()
	admin := &mockAdmin{}
	admin.On("GetMetadata", "measurements", false, mock.Anything).Return(noTopics(), nil)
	admin.On("CreateTopics", mock.Anything, mock.Anything).Return([]kafka.TopicResult{{
		Topic: "measurements",
		Error: kafka.NewError(kafka.ErrTopicAlreadyExists, "exists", false),
	}}, nil)

	require.NoError(t, EnsureTopic(t.Context(), admin, eventTopic, zaptest.NewLogger(t).Sugar()))
}

func TestEnsureTopic_Existing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		partitions int
		replicas   int
		grow       bool
		warning    string
	}{
		{name: "matches", partitions: 3, replicas: 1},
		{name: "fewer partitions", partitions: 1, replicas: 1, grow: true},
		{name: "more partitions", partitions: 6, replicas: 1, warning: "event topic has more partitions than configured, keeping them"},
		{name: "other replication", partitions: 3, replicas: 3, warning: "event topic replication factor differs from configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			core, logs := observer.New(zapcore.WarnLevel)
			admin := &mockAdmin{}
			admin.On("GetMetadata", "measurements", false, mock.Anything).
				Return(metadataWith("measurements", tt.partitions, tt.replicas), nil)
			if tt.grow {
				admin.On("CreatePartitions", mock.Anything, []kafka.PartitionsSpecification{{Topic: "measurements", IncreaseTo: 3}}).
					Return([]kafka.TopicResult{{Topic: "measurements"}}, nil)
			}

			require.NoError(t, EnsureTopic(t.Context(), admin, eventTopic, zap.New(core).Sugar()))

			admin.AssertExpectations(t)
			admin.AssertNotCalled(t, "CreateTopics", mock.Anything, mock.Anything)
			if !tt.grow {
				admin.AssertNotCalled(t, "CreatePartitions", mock.Anything, mock.Anything)
			}
			if tt.warning == "" {
				assert.Zero(t, logs.Len())
				return
			}
			assert.Equal(t, 1, logs.FilterMessage(tt.warning).Len())
		})
	}
}

func TestEnsureTopic_Errors(t *testing.T) {
	t.Parallel()
	log := zaptest.NewLogger(t).Sugar()

	invalid := eventTopic
	invalid.NumPartitions = 0
	require.ErrorContains(t, EnsureTopic(t.Context(), &mockAdmin{}, invalid, log), "invalid event topic")

	metaErr := errors.New("no brokers")
	admin := &mockAdmin{}
	admin.On("GetMetadata", "measurements", false, mock.Anything).Return(nil, metaErr)
	require.ErrorIs(t, EnsureTopic(t.Context(), admin, eventTopic, log), metaErr)

	admin = &mockAdmin{}
	admin.On("GetMetadata", "measurements", false, mock.Anything).Return(&kafka.Metadata{
		Topics: map[string]kafka.TopicMetadata{"measurements": {
			Topic: "measurements",
			Error: kafka.NewError(kafka.ErrTopicAuthorizationFailed, "denied", false),
		}},
	}, nil)
	require.ErrorContains(t, EnsureTopic(t.Context(), admin, eventTopic, log), "metadata")

	admin = &mockAdmin{}
	admin.On("GetMetadata", "measurements", false, mock.Anything).Return(noTopics(), nil)
	admin.On("CreateTopics", mock.Anything, mock.Anything).Return([]kafka.TopicResult{{
		Topic: "measurements",
		Error: kafka.NewError(kafka.ErrTopicAuthorizationFailed, "denied", false),
	}}, nil)
	require.ErrorContains(t, EnsureTopic(t.Context(), admin, eventTopic, log), "failed to create topic")

	admin = &mockAdmin{}
	admin.On("GetMetadata", "measurements", false, mock.Anything).Return(metadataWith("measurements", 1, 1), nil)
	admin.On("CreatePartitions", mock.Anything, mock.Anything).Return([]kafka.TopicResult{{
		Topic: "measurements",
		Error: kafka.NewError(kafka.ErrInvalidPartitions, "invalid", false),
	}}, nil)
	require.ErrorContains(t, EnsureTopic(t.Context(), admin, eventTopic, log), "failed to grow topic")
}
