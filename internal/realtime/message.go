package realtime

// MessageType identifies the lifecycle transition carried by a broadcast.
type MessageType string

const (
	TypeNewEvent     MessageType = "NEW_EVENT"
	TypeUpdateEvent  MessageType = "UPDATE_EVENT"
	TypeDeleteEvent  MessageType = "DELETE_EVENT"
	TypeApproveEvent MessageType = "APPROVE_EVENT"
	TypeNewRSVP      MessageType = "NEW_RSVP"
)

// Message is the ephemeral fan-out envelope. It is never persisted;
// an observer connecting after a publish never sees it.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}
