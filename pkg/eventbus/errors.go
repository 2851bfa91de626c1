package eventbus

import "errors"

// Common errors for event bus operations
var (
	// ErrPublishFailed indicates that publishing an event failed
	ErrPublishFailed = errors.New("failed to publish event")

	// ErrInvalidConfiguration indicates invalid event bus configuration
	ErrInvalidConfiguration = errors.New("invalid event bus configuration")

	// ErrSerializationFailed indicates event serialization failure
	ErrSerializationFailed = errors.New("failed to serialize event")

	// ErrDeserializationFailed indicates event deserialization failure
	ErrDeserializationFailed = errors.New("failed to deserialize event")

	// ErrClosed indicates the sink has been closed
	ErrClosed = errors.New("event bus is closed")
)
