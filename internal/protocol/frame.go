package protocol

import "encoding/json"

// ClientFrame is an inbound client frame. Exactly one recognized key must
// be present; anything else is dropped without reply so the protocol can
// evolve without breaking old servers.
type ClientFrame struct {
	Message *string `json:"message,omitempty"`
	Typing  *bool   `json:"typing,omitempty"`
}

// DecodeClientFrame parses raw frame bytes. ok is false for undecodable
// input and for frames that do not carry exactly one recognized key.
func DecodeClientFrame(data []byte) (ClientFrame, bool) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientFrame{}, false
	}
	if (f.Message == nil) == (f.Typing == nil) {
		return ClientFrame{}, false
	}
	return f, true
}

func EncodeMessageFrame(text string) ([]byte, error) {
	return json.Marshal(ClientFrame{Message: &text})
}

func EncodeTypingFrame(typing bool) ([]byte, error) {
	return json.Marshal(ClientFrame{Typing: &typing})
}
