package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/models"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers committed ledger notifications.
type Publisher interface {
	Publish(ctx context.Context, n models.LedgerNotification) error
	Close() error
}

type Producer struct {
	Writer *kafka.Writer
	Prefix string
	Logger *logger.Logger
}

// NewProducer writes to every notification topic through one writer; the
// topic is chosen per message.
func NewProducer(brokers []string, prefix string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Prefix: prefix, Logger: log}
}

// Publish streams the notification keyed by event address, so one event's
// notifications stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, n models.LedgerNotification) error {
	msg, err := Message(p.Prefix, n)
	if err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", msg.Topic, fmt.Sprintf("%s for %s", n.Type, n.Event))

	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// Message encodes n for its topic.
func Message(prefix string, n models.LedgerNotification) (kafka.Message, error) {
	value, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode notification: %w", err)
	}
	return kafka.Message{
		Topic: Topic(prefix, n.Type),
		Key:   []byte(n.Event),
		Value: value,
	}, nil
}

// NopPublisher drops notifications; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.LedgerNotification) error { return nil }

func (NopPublisher) Close() error { return nil }

// Fanout publishes to every publisher in order and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, n models.LedgerNotification) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
