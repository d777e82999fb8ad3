package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/models"

	"github.com/segmentio/kafka-go"
)

// NotificationTypes lists every notification the service publishes.
var NotificationTypes = []string{
	models.NotificationEventCreated,
	models.NotificationTicketsPurchased,
	models.NotificationEventSponsored,
	models.NotificationFundsWithdrawn,
	models.NotificationEventClosed,
}

// Topic names the topic for a notification type, e.g.
// "event-ledger.tickets.purchased".
func Topic(prefix, kind string) string {
	return prefix + "." + kind
}

// Topics returns all notification topics under prefix.
func Topics(prefix string) []string {
	topics := make([]string, 0, len(NotificationTypes))
	for _, kind := range NotificationTypes {
		topics = append(topics, Topic(prefix, kind))
	}
	return topics
}

// EnsureTopicsExist creates Kafka topics if they don't already exist
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		switch {
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.LogKafka("TOPIC", topic, "already exists")
		case err != nil:
			// Keep going; the writer can still auto-create on first publish.
			log.Warn("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
		default:
			log.LogKafka("TOPIC", topic, "created")
		}
	}
	return nil
}

// ListTopics returns a list of all existing topics
func ListTopics(ctx context.Context, brokers []string) ([]string, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}
