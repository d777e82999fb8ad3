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

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer reads every notification topic under prefix as part of groupID.
func NewConsumer(brokers []string, prefix, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: Topics(prefix),
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start hands each decoded notification to handler until ctx is cancelled.
// Undecodable messages are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(models.LedgerNotification)) error {
	c.logger.Info("KAFKA", "Notification consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		n, err := Decode(msg)
		if err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping message at %s/%d: %v", msg.Topic, msg.Offset, err))
			continue
		}

		handler(n)
	}
}

// Decode parses a notification message.
func Decode(msg kafka.Message) (models.LedgerNotification, error) {
	var n models.LedgerNotification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	if n.Type == "" || n.Event == "" {
		return n, errors.New("decode notification: missing type or event")
	}
	return n, nil
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
