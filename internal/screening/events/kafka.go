package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"screener/internal/screening/models"
)

// KafkaPublisher produces report events to one topic, keyed by report ID so
// a report's events stay ordered on one partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type KafkaOption func(*KafkaPublisher)

func WithLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

func NewKafkaPublisher(brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := &KafkaPublisher{client: client, topic: topic, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

func (p *KafkaPublisher) PublishReportCreated(ctx context.Context, r *models.ScreeningReport) error {
	event := NewReportCreated(ctx, r)
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.ReportID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", event.Type, err)
	}
	p.logger.DebugContext(ctx, "report event published",
		"report_id", event.ReportID,
		"topic", p.topic,
	)
	return nil
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
