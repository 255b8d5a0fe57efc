package redisbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketScope/internal/notify"
)

const publishTimeout = 5 * time.Second

// Bus publishes marketplace notifications to a Redis Pub/Sub channel, letting
// other processes (an API gateway, a WebSocket bridge) fan them out further.
type Bus struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

// New connects to Redis and returns a bus publishing on channel.
func New(addr, channel string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		rdb:     redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
		logger:  logger,
	}
}

// Broadcast publishes the message. Failures are logged and swallowed; the
// bus never blocks projection progress.
func (b *Bus) Broadcast(msg notify.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshal notification", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Warn("redis publish failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// Close releases the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
