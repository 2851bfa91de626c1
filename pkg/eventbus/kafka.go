package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the subset of kafka.Writer used by KafkaBus
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBus writes events to a Kafka topic, keyed by show id so that updates
// to one show stay ordered within a partition
type KafkaBus struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

var _ Publisher = (*KafkaBus)(nil)

// NewKafkaBus creates a writer for topic on brokers. Connections are opened lazily.
func NewKafkaBus(brokers []string, topic string, logger *zap.Logger) (*KafkaBus, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: no Kafka brokers configured", ErrInvalidConfiguration)
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: no Kafka topic configured", ErrInvalidConfiguration)
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaBus(writer, topic, logger), nil
}

func newKafkaBus(writer messageWriter, topic string, logger *zap.Logger) *KafkaBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaBus{writer: writer, topic: topic, logger: logger.Named("kafka-eventbus")}
}

// Publish writes one message and waits for the broker acknowledgement
func (b *KafkaBus) Publish(ctx context.Context, event ShowUpserted) error {
	data, err := Serialize(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.ShowID.Hex()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeShowUpserted)},
			{Key: "content_type", Value: []byte(ContentTypeJSON)},
		},
		Time: event.At,
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: kafka: %w", ErrPublishFailed, err)
	}

	b.logger.Debug("event published", zap.String("topic", b.topic), zap.String("show_id", event.ShowID.String()))
	return nil
}

// Type returns BusTypeKafka
func (b *KafkaBus) Type() BusType {
	return BusTypeKafka
}

// Close flushes and closes the writer
func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
