package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxMessageLen = 2000

var ErrMessageTooLong = errors.New("message too long")

// Message is an ephemeral chat message. It exists only in transit; nothing
// is persisted beyond fan-out.
type Message struct {
	ID        string    `json:"message_id"`
	Username  string    `json:"username"`
	RoomID    RoomID    `json:"-"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps an accepted post with a server-assigned id and time.
func NewMessage(roomID RoomID, username, content string) (*Message, error) {
	if len(content) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}
	return &Message{
		ID:        uuid.NewString(),
		Username:  username,
		RoomID:    roomID,
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}
