// Package eventbus fans committed show updates out to in-process subscribers
// and to external brokers. Publishing is best effort and never affects
// persistence.
package eventbus

import (
	"context"
	"time"

	"github.com/0xmhha/show-indexer/pkg/u256"
)

// EventType names a published event
type EventType string

// EventTypeShowUpserted is published after a show's records are committed
const EventTypeShowUpserted EventType = "showUpserted"

// ShowUpserted describes one committed show write
type ShowUpserted struct {
	ShowID      u256.Uint256  `json:"show_id"`
	TxHash      *string       `json:"tx_hash,omitempty"`
	BlockNumber *u256.Uint256 `json:"block_number,omitempty"`
	Status      string        `json:"status,omitempty"`
	IsActive    bool          `json:"is_active"`
	At          time.Time     `json:"at"`
}

// Publisher delivers events to one sink
type Publisher interface {
	// Publish delivers the event or returns an error; it never blocks past ctx
	Publish(ctx context.Context, event ShowUpserted) error

	// Type returns the sink type
	Type() BusType

	// Close releases the sink's connections
	Close() error
}

// BusType represents the type of event sink
type BusType string

const (
	// BusTypeNone publishes nowhere outside the process
	BusTypeNone BusType = "none"

	// BusTypeLocal represents the in-process subscriber fan-out
	BusTypeLocal BusType = "local"

	// BusTypeRedis represents Redis Pub/Sub
	BusTypeRedis BusType = "redis"

	// BusTypeKafka represents a Kafka topic
	BusTypeKafka BusType = "kafka"

	// BusTypeRabbitMQ represents a RabbitMQ topic exchange
	BusTypeRabbitMQ BusType = "rabbitmq"

	// BusTypeMulti represents a fan-out over several sinks
	BusTypeMulti BusType = "multi"
)
