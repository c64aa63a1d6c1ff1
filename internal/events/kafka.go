package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// producer is the subset of *kgo.Client the sink needs.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaSink forwards dispatched events to a Kafka topic, keyed by ticket id
// so every event of one ticket lands on the same partition.
type KafkaSink struct {
	client producer
	topic  string
	logger *zap.Logger
}

// NewKafkaSink connects a producer to brokers.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return newKafkaSink(client, topic, logger), nil
}

func newKafkaSink(client producer, topic string, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{client: client, topic: topic, logger: logger}
}

// Register subscribes the sink to every event type.
func (s *KafkaSink) Register(d Dispatcher) {
	for _, t := range AllEventTypes {
		d.Subscribe(t, s.Handle)
	}
}

// Handle produces event asynchronously. Delivery failures are logged.
func (s *KafkaSink) Handle(ctx context.Context, event Event) error {
	rec, err := Record(s.topic, event)
	if err != nil {
		return err
	}
	s.client.Produce(ctx, rec, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("kafka produce failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	})
	return nil
}

// Close flushes buffered records and closes the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	err := s.client.Flush(ctx)
	s.client.Close()
	return err
}

// Record encodes event as a Kafka record.
func Record(topic string, event Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.TicketID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(event.Type)},
		},
		Timestamp: event.Timestamp,
	}, nil
}
