// Package protocol defines the JSON envelopes exchanged between server and
// client. Server-to-client envelopes are tagged by "type"; client-to-server
// frames carry exactly one recognized key.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/avlasov/Parley/internal/domain"
)

const (
	TypeWelcome    = "welcome"
	TypeMessage    = "message"
	TypeMessages   = "messages"
	TypeUserJoined = "user_joined"
	TypeUserLeft   = "user_left"
	TypeRateLimit  = "rate_limit"
	TypeTyping     = "typing"
)

type Welcome struct {
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	RoomID   string   `json:"room_id"`
	Username string   `json:"username"`
	Users    []string `json:"users"`
}

type Message struct {
	Type      string    `json:"type,omitempty"`
	MessageID string    `json:"message_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Messages is the batched variant of Message. Items carry no "type" of
// their own; clients reconcile them by message_id exactly like single
// envelopes.
type Messages struct {
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

type Presence struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type RateLimit struct {
	Type             string `json:"type"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type Typing struct {
	Type        string   `json:"type"`
	TypingUsers []string `json:"typing_users"`
}

func NewWelcome(roomID domain.RoomID, username string, users []string) Welcome {
	return Welcome{
		Type:     TypeWelcome,
		Message:  "Welcome to room '" + string(roomID) + "', " + username + "!",
		RoomID:   string(roomID),
		Username: username,
		Users:    users,
	}
}

func NewMessage(m *domain.Message) Message {
	return Message{
		Type:      TypeMessage,
		MessageID: m.ID,
		Username:  m.Username,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func NewUserJoined(username string, ts time.Time) Presence {
	return Presence{Type: TypeUserJoined, Username: username, Timestamp: ts}
}

func NewUserLeft(username string, ts time.Time) Presence {
	return Presence{Type: TypeUserLeft, Username: username, Timestamp: ts}
}

// Envelope is the decode-side union of every server-to-client payload.
// Clients switch on Type and read only the fields that apply.
type Envelope struct {
	Type             string    `json:"type"`
	Message          string    `json:"message,omitempty"`
	RoomID           string    `json:"room_id,omitempty"`
	Users            []string  `json:"users,omitempty"`
	MessageID        string    `json:"message_id,omitempty"`
	Username         string    `json:"username,omitempty"`
	Content          string    `json:"content,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitzero"`
	Messages         []Message `json:"messages,omitempty"`
	RemainingSeconds int       `json:"remaining_seconds,omitempty"`
	TypingUsers      []string  `json:"typing_users,omitempty"`
}

func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
