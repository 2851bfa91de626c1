package websocket

import "encoding/json"

// SubscriptionType names an event stream a client can subscribe to
type SubscriptionType string

const (
	// SubscribeShowUpserted streams committed show writes
	SubscribeShowUpserted SubscriptionType = "showUpserted"
)

// Message is the envelope for every frame in both directions
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribeRequest is the payload of a "subscribe" message
type SubscribeRequest struct {
	Type SubscriptionType `json:"type"`
}

// UnsubscribeRequest is the payload of an "unsubscribe" message
type UnsubscribeRequest struct {
	Type SubscriptionType `json:"type"`
}

// Event is the payload of an "event" message
type Event struct {
	Type SubscriptionType `json:"type"`
	Data interface{}      `json:"data"`
}

// ErrorMessage is the payload of an "error" message
type ErrorMessage struct {
	Error string `json:"error"`
}

// SuccessMessage is the payload of a "success" message
type SuccessMessage struct {
	Message string `json:"message"`
}
