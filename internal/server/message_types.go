package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

const (
	// Client to server messages
	MessageTypeTrigger MessageType = "trigger"

	// Server to client messages
	MessageTypeSnapshot       MessageType = "snapshot"
	MessageTypeTriggerResult  MessageType = "trigger_result"
	MessageTypeError          MessageType = "error"
	MessageTypePhaseChanged   MessageType = "phase_changed"
	MessageTypeCardDealt      MessageType = "card_dealt"
	MessageTypeHandUpdated    MessageType = "hand_updated"
	MessageTypeDecisionMade   MessageType = "decision_made"
	MessageTypeAwaiting       MessageType = "awaiting"
	MessageTypeDealerRevealed MessageType = "dealer_revealed"
	MessageTypeRoundResolved  MessageType = "round_resolved"
	MessageTypeRoundCancelled MessageType = "round_cancelled"
	MessageTypeShoeExhausted  MessageType = "shoe_exhausted"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
