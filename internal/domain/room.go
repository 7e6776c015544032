package domain

import (
	"errors"
	"strings"
	"unicode"
)

// RoomIDLen is the canonical room id length after normalization.
// Earlier protocol revisions allowed 1-4 free-form characters; only the
// 5-character form is accepted now.
const RoomIDLen = 5

var ErrInvalidRoom = errors.New("invalid room id")

// RoomID is a canonical room identifier: exactly RoomIDLen uppercase
// alphanumeric characters.
type RoomID string

// NormalizeRoomID strips non-alphanumeric characters, uppercases the rest
// and validates the canonical length. "abc-12" and "ABC12" address the same
// room.
func NormalizeRoomID(raw string) (RoomID, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	id := b.String()
	if len(id) != RoomIDLen {
		return "", ErrInvalidRoom
	}
	return RoomID(id), nil
}
