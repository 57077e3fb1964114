package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Msg is a message to be produced. Key determines the partition.
type Msg struct {
	Topic   string
	Value   []byte
	Key     []byte
	Headers map[string]string
}

// client is the subset of *kafka.Producer used by Producer.
type client interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Logs() chan kafka.LogEvent
	Flush(timeoutMs int) int
	Close()
}

// Producer is a synchronous Kafka producer.
//
// Produce blocks until a delivery confirmation is received from Kafka.
// Background goroutines process producer events and, when enabled, librdkafka logs.
//
// Close MUST be called at least once to stop background goroutines and flush
// all in-flight messages.
type Producer struct {
	client           client
	log              *zap.SugaredLogger
	queueFullBackoff time.Duration
	errCh            chan error
	eventsDone       chan struct{}
	logsDone         chan struct{}
	closedCh         chan struct{}
	once             sync.Once
}

const queueFullErrorRetryDelay = time.Second

// NewProducer creates a Kafka producer from conf.
//
// The provided context controls the lifetime of background goroutines.
// Callers must call Close to flush messages and release resources.
func NewProducer(ctx context.Context, conf *kafka.ConfigMap, log *zap.SugaredLogger) (*Producer, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}

	logsChEnabled, err := conf.Get("go.logs.channel.enable", false)
	if err != nil {
		return nil, fmt.Errorf("failed to get go.logs.channel.enable: %w", err)
	}

	p, err := kafka.NewProducer(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newProducer(ctx, p, logsChEnabled.(bool), log), nil
}

func newProducer(ctx context.Context, c client, logsEnabled bool, log *zap.SugaredLogger) *Producer {
	q := &Producer{
		client:           c,
		log:              log,
		queueFullBackoff: queueFullErrorRetryDelay,
		eventsDone:       make(chan struct{}),
		logsDone:         make(chan struct{}),
		errCh:            make(chan error, 1),
		closedCh:         make(chan struct{}),
	}

	if logsEnabled {
		go q.printKafkaLogs(ctx)
	} else {
		close(q.logsDone)
	}
	go q.monitorProducerEvents(ctx)

	return q
}

// Produce synchronously produces a message to Kafka.
//
// Produce blocks until either a delivery receipt is received or ctx is done.
// If the producer queue is full the message is retried after a short delay.
//
// If ctx is canceled before delivery confirmation, Produce returns ctx.Err().
// The message MAY still be delivered after Produce returns, so consumers must
// tolerate duplicates.
func (q *Producer) Produce(ctx context.Context, msg Msg) error {
	// Buffered so a late receipt never blocks the librdkafka callback.
	deliveryCh := make(chan kafka.Event, 1)

	kMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &msg.Topic,
			Partition: kafka.PartitionAny,
		},
		Value:   msg.Value,
		Key:     msg.Key,
		Headers: toHeaders(msg.Headers),
	}

	if err := q.produceWithRetry(ctx, kMsg, deliveryCh); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryCh:
		return handleDeliveryEvent(q.log, kMsg, e)
	}
}

// Close stops background goroutines and flushes all pending messages.
//
// If timeout is reached, Close aborts the flush and closes the producer; the
// pending messages are lost. Calling Close multiple times does nothing.
func (q *Producer) Close(timeout time.Duration) {
	q.once.Do(func() {
		q.log.Info("closing kafka producer")
		defer close(q.errCh)

		close(q.closedCh)
		<-q.eventsDone
		<-q.logsDone

		if pending := q.client.Flush(int(timeout.Milliseconds())); pending > 0 {
			q.log.Warnw("flush incomplete, messages will be lost", "pending", pending)
		}

		q.client.Close()
		q.log.Info("kafka producer closed")
	})
}

// Errors returns a channel that receives at most one fatal error.
// The channel is closed when the producer shuts down.
//
// After receiving an error, the producer is no longer usable.
func (q *Producer) Errors() <-chan error {
	return q.errCh
}

func (q *Producer) printKafkaLogs(ctx context.Context) {
	defer close(q.logsDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closedCh:
			return
		case log, ok := <-q.client.Logs():
			if !ok {
				return
			}
			q.log.Debugw("librdkafka", "level", log.Level, "tag", log.Tag, "message", log.Message)
		}
	}
}

// produceWithRetry enqueues msg, retrying while the local queue is full.
// Any other enqueue error is returned wrapped with its cause.
func (q *Producer) produceWithRetry(ctx context.Context, msg *kafka.Message, deliveryCh chan kafka.Event) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := q.client.Produce(msg, deliveryCh)
		if err == nil {
			return nil
		}

		var kafkaErr kafka.Error
		if !errors.As(err, &kafkaErr) {
			return fmt.Errorf("failed to produce: %w", err)
		}

		switch kafkaErr.Code() {
		case kafka.ErrQueueFull:
			q.log.Warnw("producer queue full, retrying", "delay", q.queueFullBackoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.queueFullBackoff):
			}
		case kafka.ErrBrokerNotAvailable:
			return fmt.Errorf("broker not available: %w", err)
		case kafka.ErrInvalidMsgSize, kafka.ErrMsgSizeTooLarge:
			return fmt.Errorf("invalid message size: %w", err)
		case kafka.ErrUnknownTopicOrPart, kafka.ErrUnknownTopic:
			return fmt.Errorf("unknown topic or partition: %w", err)
		case kafka.ErrAuthentication:
			return fmt.Errorf("authentication error: %w", err)
		default:
			return fmt.Errorf("failed to produce: %w", err)
		}
	}
}

func (q *Producer) monitorProducerEvents(ctx context.Context) {
	defer close(q.eventsDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closedCh:
			return
		case ev, ok := <-q.client.Events():
			if !ok {
				q.reportFatal(errors.New("kafka producer event channel closed"))
				return
			}

			switch e := ev.(type) {
			case *kafka.Message:
				// Receipts go to the per-message channel; this only sees orphans.
				if e.TopicPartition.Error != nil {
					q.log.Errorw("failed to deliver message", "topicPartition", e.TopicPartition.String())
				}
			case kafka.Error:
				if e.IsFatal() || e.Code() == kafka.ErrAllBrokersDown {
					q.reportFatal(fmt.Errorf("fatal err or ErrAllBrokersDown: %#x, %w", e.Code(), e))
					return
				}
				q.log.Warnw("ignoring kafka error", "code", e.Code(), "error", e)
			default:
				q.log.Debugw("ignoring kafka event", "event", e.String())
			}
		}
	}
}

func (q *Producer) reportFatal(err error) {
	select {
	case q.errCh <- err:
	default:
		q.log.Warnw("error channel is full, dropping error", "error", err)
	}
}

func handleDeliveryEvent(log *zap.SugaredLogger, msg *kafka.Message, ev kafka.Event) error {
	e, ok := ev.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event: %T", ev)
	}
	if err := e.TopicPartition.Error; err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	log.Debugw("delivered",
		"topic", *msg.TopicPartition.Topic,
		"partition", e.TopicPartition.Partition,
		"offset", e.TopicPartition.Offset,
	)
	return nil
}

func toHeaders(h map[string]string) []kafka.Header {
	if len(h) == 0 {
		return nil
	}
	headers := make([]kafka.Header, 0, len(h))
	for k, v := range h {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
