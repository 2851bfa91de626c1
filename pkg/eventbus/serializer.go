package eventbus

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentTypeJSON is the MIME type of serialized events
const ContentTypeJSON = "application/json"

// envelope wraps an event with type information for consumers
type envelope struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Serialize encodes an event in its JSON envelope
func Serialize(event ShowUpserted) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	out, err := json.Marshal(envelope{
		Type:      EventTypeShowUpserted,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return out, nil
}

// Deserialize decodes an envelope produced by Serialize
func Deserialize(raw []byte) (ShowUpserted, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ShowUpserted{}, fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}
	if env.Type != EventTypeShowUpserted {
		return ShowUpserted{}, fmt.Errorf("%w: unknown event type %q", ErrDeserializationFailed, env.Type)
	}
	var event ShowUpserted
	if err := json.Unmarshal(env.Data, &event); err != nil {
		return ShowUpserted{}, fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}
	return event, nil
}
