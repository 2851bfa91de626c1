package eventbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisPublisher is the subset of the go-redis client used for Pub/Sub
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisBus publishes events to a Redis Pub/Sub channel
type RedisBus struct {
	client  redisPublisher
	channel string
	logger  *zap.Logger
}

var _ Publisher = (*RedisBus)(nil)

// NewRedisBus connects to url and publishes to channel
func NewRedisBus(ctx context.Context, url, channel string, logger *zap.Logger) (*RedisBus, error) {
	if url == "" || channel == "" {
		return nil, fmt.Errorf("%w: redis url and channel are required", ErrInvalidConfiguration)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisBus(client, channel, logger), nil
}

func newRedisBus(client redisPublisher, channel string, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, channel: channel, logger: logger.Named("redis-eventbus")}
}

// Publish sends the serialized event to the channel
func (b *RedisBus) Publish(ctx context.Context, event ShowUpserted) error {
	data, err := Serialize(event)
	if err != nil {
		return err
	}
	receivers, err := b.client.Publish(ctx, b.channel, data).Result()
	if err != nil {
		return fmt.Errorf("%w: redis: %w", ErrPublishFailed, err)
	}
	b.logger.Debug("event published",
		zap.String("channel", b.channel),
		zap.String("show_id", event.ShowID.String()),
		zap.Int64("receivers", receivers))
	return nil
}

// Type returns BusTypeRedis
func (b *RedisBus) Type() BusType {
	return BusTypeRedis
}

// Close closes the redis client
func (b *RedisBus) Close() error {
	return b.client.Close()
}
