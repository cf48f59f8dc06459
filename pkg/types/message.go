package types

import "time"

// Room is a chat room. Rooms are created on first use with an assigned ID
// so the room ID in a URL is also the storage key.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is a persisted chat message. SenderID is nil for messages
// written by unauthenticated or service callers; SenderName is always set
// (falling back to "anonymous" or the service name).
type Message struct {
	ID         int64     `json:"id"`
	RoomID     int64     `json:"roomId"`
	SenderID   *int64    `json:"senderUserId,omitempty"`
	SenderName string    `json:"senderId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"-"`
}

// MessageView is the wire shape for a message, matching what websocket
// clients send and receive. Ts is milliseconds since the epoch.
type MessageView struct {
	RoomID   int64  `json:"roomId"`
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
	Ts       int64  `json:"ts"`
}

// View converts a stored message to its wire shape.
func (m *Message) View() MessageView {
	return MessageView{
		RoomID:   m.RoomID,
		SenderID: m.SenderName,
		Content:  m.Content,
		Ts:       m.CreatedAt.UnixMilli(),
	}
}
