package eventbus

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RoutingKeyShowUpserted is the routing key of published show events
const RoutingKeyShowUpserted = "show.upserted"

// amqpChannel is the subset of *amqp.Channel used by AMQPBus
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPBus publishes events to a durable RabbitMQ topic exchange
type AMQPBus struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	logger   *zap.Logger
}

var _ Publisher = (*AMQPBus)(nil)

// NewAMQPBus dials url and declares the exchange
func NewAMQPBus(url, exchange string, logger *zap.Logger) (*AMQPBus, error) {
	if url == "" || exchange == "" {
		return nil, fmt.Errorf("%w: amqp url and exchange are required", ErrInvalidConfiguration)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	bus := newAMQPBus(ch, exchange, logger)
	bus.conn = conn
	return bus, nil
}

func newAMQPBus(ch amqpChannel, exchange string, logger *zap.Logger) *AMQPBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPBus{ch: ch, exchange: exchange, logger: logger.Named("amqp-eventbus")}
}

// Publish sends a persistent message to the exchange
func (b *AMQPBus) Publish(ctx context.Context, event ShowUpserted) error {
	data, err := Serialize(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  ContentTypeJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.At,
		Type:         string(EventTypeShowUpserted),
		MessageId:    event.ShowID.Hex(),
		Body:         data,
	}
	if err := b.ch.PublishWithContext(ctx, b.exchange, RoutingKeyShowUpserted, false, false, pub); err != nil {
		return fmt.Errorf("%w: rabbitmq: %w", ErrPublishFailed, err)
	}

	b.logger.Debug("event published", zap.String("exchange", b.exchange), zap.String("show_id", event.ShowID.String()))
	return nil
}

// Type returns BusTypeRabbitMQ
func (b *AMQPBus) Type() BusType {
	return BusTypeRabbitMQ
}

// Close closes the channel and the connection
func (b *AMQPBus) Close() error {
	err := b.ch.Close()
	if b.conn != nil {
		if cerr := b.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
