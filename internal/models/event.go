package models

// Socket event types pushed to clients. Client-to-server frames reuse the
// same envelope with types "message.send" and "typing".
const (
	EventMessageNew         = "message.new"
	EventChatCreated        = "chat.created"
	EventChatDeleted        = "chat.deleted"
	EventParticipantAdded   = "participant.added"
	EventParticipantRemoved = "participant.removed"
	EventTyping             = "typing"
	EventPresence           = "presence"
)

// Event is the envelope for everything that crosses the push channel.
// ChatID routes the event to a chat room; UserID (when ChatID is zero)
// targets a single user's connections.
type Event struct {
	Type    string `json:"type"`
	ChatID  int    `json:"chat_id,omitempty"`
	UserID  int    `json:"user_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}
