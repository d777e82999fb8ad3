package lock

import (
	"context"
	"fmt"
	"strings"

	"ms-event-ledger/internal/logger"

	"github.com/go-redis/redis/v8"
)

// WatchExpirations reports event locks that expired instead of being
// released: the holder outlived the TTL or died mid-operation. It runs
// until ctx is cancelled.
func WatchExpirations(ctx context.Context, client *redis.Client, log *logger.Logger) {
	if err := client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	}

	channel := fmt.Sprintf("__keyevent@%d__:expired", client.Options().DB)
	pubsub := client.PSubscribe(ctx, channel)
	log.Info("REDIS", fmt.Sprintf("Subscribed to %s", channel))

	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()

	go func() {
		for msg := range pubsub.Channel() {
			if event, ok := ExpiredEvent(msg.Payload); ok {
				log.Warn("LOCK", fmt.Sprintf("Lock on event %s expired before release", event))
			}
		}
	}()
}

// ExpiredEvent extracts the event address from an expired key name.
func ExpiredEvent(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", false
	}
	event := strings.TrimPrefix(key, keyPrefix)
	return event, event != ""
}
