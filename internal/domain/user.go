// Package domain contains entities and validation rules, no transport or
// lifecycle logic.
package domain

import "errors"

const MaxUsernameLen = 50

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameTaken   = errors.New("username already taken in room")
)

// ValidateUsername checks the connect-time username. Uniqueness within a
// room is enforced by the registry, not here.
func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
