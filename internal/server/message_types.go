package server

// Note: round events (round_started, card_dealt, round_settled, ...) are
// defined in internal/game/events.go and are sent with their event type as
// the message type.

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeStart  MessageType = "start"
	MessageTypeHit    MessageType = "hit"
	MessageTypeStand  MessageType = "stand"
	MessageTypeDouble MessageType = "double"
	MessageTypeSplit  MessageType = "split"
	MessageTypeReset  MessageType = "reset"
	MessageTypeState  MessageType = "state"

	// Server to client messages
	MessageTypeWelcome  MessageType = "welcome"
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeError    MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
