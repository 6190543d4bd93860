package dto

type EventKind string

const (
	EventKindCommand  EventKind = "command"
	EventKindCallback EventKind = "callback"
	EventKindPhoto    EventKind = "photo"
	EventKindText     EventKind = "text"
)

// EventRequest is one inbound chat update. ChatIdentity is where the update
// was posted; SenderID is who posted it and only means something in the
// admin group.
type EventRequest struct {
	ChatIdentity int64     `json:"chatIdentity"`
	SenderID     int64     `json:"senderId,omitempty"`
	SenderName   string    `json:"senderName,omitempty"`
	Kind         EventKind `json:"kind"`
	Payload      string    `json:"payload"`
}

// Sender returns the identity acting on the update. SenderID is honored only
// for updates posted in groupChatID; in a private chat the sender is the chat.
func (r EventRequest) Sender(groupChatID int64) int64 {
	if groupChatID != 0 && r.ChatIdentity == groupChatID && r.SenderID != 0 {
		return r.SenderID
	}
	return r.ChatIdentity
}
