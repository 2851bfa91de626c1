package eventbus

import (
	"context"
	"fmt"

	"github.com/0xmhha/show-indexer/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig builds the external sink selected by cfg.Type.
// It returns (nil, nil) for type "none".
func NewFromConfig(ctx context.Context, cfg config.EventBusConfig, logger *zap.Logger) (Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		sink Publisher
		err  error
	)
	switch BusType(cfg.Type) {
	case BusTypeNone, "":
		return nil, nil
	case BusTypeRedis:
		sink, err = NewRedisBus(ctx, cfg.Redis.URL, cfg.Redis.Channel, logger)
	case BusTypeKafka:
		sink, err = NewKafkaBus(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	case BusTypeRabbitMQ:
		sink, err = NewAMQPBus(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	default:
		return nil, fmt.Errorf("%w: unknown event bus type %q", ErrInvalidConfiguration, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("event bus sink created", zap.String("type", cfg.Type))
	return sink, nil
}
