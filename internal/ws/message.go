package ws

import (
	"encoding/json"
	"time"
)

// Message types sent by clients.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypeAuth        = "auth"
)

// Message types sent by the server.
const (
	TypePriceUpdate           = "price_update"
	TypeSignalAlert           = "signal_alert"
	TypeMarketData            = "market_data"
	TypeSystemStatus          = "system_status"
	TypePong                  = "pong"
	TypeError                 = "error"
	TypeAuthSuccess           = "auth_success"
	TypeAuthError             = "auth_error"
	TypeSubscriptionSuccess   = "subscription_success"
	TypeSubscriptionError     = "subscription_error"
	TypeUnsubscriptionSuccess = "unsubscription_success"
)

// Message is the JSON envelope used in both directions on the wire.
// Channel is empty for session-scoped control replies.
type Message struct {
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Channels  []string       `json:"channels,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Token     string         `json:"token,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"` // unix milliseconds
}

// NewMessage builds a server-originated message with the current timestamp.
func NewMessage(typ string, data map[string]any) Message {
	return Message{
		Type:      typ,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewErrorMessage builds an error reply for a single session.
func NewErrorMessage(msg string) Message {
	return NewMessage(TypeError, map[string]any{"message": msg})
}

func (m Message) encode() []byte {
	b, err := json.Marshal(m)
	if err != nil {
		// The envelope only carries JSON-safe values; a marshal failure here
		// means a programming error in the producer.
		return []byte(`{"type":"error","data":{"message":"encoding failure"}}`)
	}
	return b
}
