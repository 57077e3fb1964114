package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ettgrid/measurements-syncer/pkg/kafka"
	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

const eventTypeHeader = "event-type"

// EventType is the value of the event type header on every produced message.
const EventType = "measurement.confirmed.v1"

// Producer delivers one message to the bus.
type Producer interface {
	Produce(ctx context.Context, msg kafka.Msg) error
}

// Publisher publishes measurement events to a single topic, keyed by GSRN so
// that events of one metering point land on one partition.
type Publisher struct {
	producer Producer
	topic    string
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics
}

func NewPublisher(producer Producer, topic string, log *zap.SugaredLogger, m *metrics.Metrics) (*Publisher, error) {
	if producer == nil {
		return nil, errors.New("invalid producer: must not be nil")
	}
	if topic == "" {
		return nil, errors.New("invalid topic: must not be empty")
	}
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      log,
		metrics:  m,
	}, nil
}

// Publish maps and publishes one event per measurement, in order. A failed
// event does not stop the remaining ones. The intervals of the measurements
// that could not be published are returned so the caller can retry them.
//
// Publish stops early only when ctx is done; the unattempted measurements are
// then reported as failed as well.
func (p *Publisher) Publish(ctx context.Context, info types.MeteringPointSyncInfo, ms []types.Measurement) []types.MeasurementInterval {
	var failed []types.MeasurementInterval
	for i, m := range ms {
		if ctx.Err() != nil {
			for _, rest := range ms[i:] {
				failed = append(failed, rest.Interval())
			}
			p.log.Warnw("publish interrupted", "gsrn", info.GSRN, "unpublished", len(ms)-i, "error", ctx.Err())
			break
		}

		err := p.publishOne(ctx, Map(m, info))
		p.metrics.RecordPublish(err)
		if err != nil {
			p.log.Errorw("failed to publish measurement event",
				"gsrn", m.GSRN,
				"from", m.DateFrom,
				"to", m.DateTo,
				"error", err,
			)
			failed = append(failed, m.Interval())
		}
	}
	return failed
}

func (p *Publisher) publishOne(ctx context.Context, e MeasurementEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
	}
	return p.producer.Produce(ctx, kafka.Msg{
		Topic:   p.topic,
		Key:     []byte(e.GSRN),
		Value:   value,
		Headers: map[string]string{eventTypeHeader: EventType},
	})
}
