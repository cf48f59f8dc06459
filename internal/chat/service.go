// Package chat provides room and message persistence for the messaging
// surface. Rooms are created on first use; history is cursor-paginated by
// creation time.
package chat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

const (
	// defaultHistoryLimit is used when a caller asks for no specific size.
	defaultHistoryLimit = 50

	// maxHistoryLimit caps a single history page.
	maxHistoryLimit = 200
)

// Service persists messages and serves history.
type Service struct {
	rooms    storage.RoomStore
	messages storage.MessageStore
}

// NewService creates a chat service.
func NewService(rooms storage.RoomStore, messages storage.MessageStore) *Service {
	return &Service{rooms: rooms, messages: messages}
}

// SaveMessage persists a message in the given room, creating the room on
// first use. sender may be nil for unauthenticated or service callers;
// senderName is the display name recorded either way (callers pass
// "anonymous" or a service name when there is no account). A zero ts
// means "now"; otherwise it is milliseconds since the epoch as supplied
// by the client.
func (s *Service) SaveMessage(ctx context.Context, roomID int64, sender *types.User, senderName, content string, ts int64) (*types.Message, error) {
	room, err := s.rooms.EnsureRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	m := &types.Message{
		RoomID:     room.ID,
		SenderName: senderName,
		Content:    content,
	}
	if sender != nil {
		m.SenderID = &sender.ID
		m.SenderName = sender.Username
	}
	if ts > 0 {
		m.CreatedAt = time.UnixMilli(ts).UTC()
	}

	if err := s.messages.SaveMessage(ctx, m); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"message_id": m.ID,
		"room_id":    m.RoomID,
		"sender":     m.SenderName,
		"length":     len(m.Content),
	}).Debug("message saved")
	return m, nil
}

// History returns up to size messages for a room in ascending creation
// order. size falls back to the default and is capped; a positive
// beforeMillis restricts results to messages created strictly earlier.
func (s *Service) History(ctx context.Context, roomID int64, size int, beforeMillis int64) ([]types.MessageView, error) {
	limit := size
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	var before time.Time
	if beforeMillis > 0 {
		before = time.UnixMilli(beforeMillis).UTC()
	}

	msgs, err := s.messages.MessageHistory(ctx, roomID, limit, before)
	if err != nil {
		return nil, err
	}

	views := make([]types.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, m.View())
	}
	return views, nil
}
