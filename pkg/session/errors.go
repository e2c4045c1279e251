package session

import "errors"

// Session package errors.
var (
	// ErrInvalidKey is returned when an encryption key has invalid length.
	ErrInvalidKey = errors.New("session: invalid key length")

	// ErrInvalidSessionID is returned when a session ID has invalid length.
	ErrInvalidSessionID = errors.New("session: invalid session ID length")

	// ErrInvalidDirection is returned when the direction is not ClientToLock
	// or LockToClient.
	ErrInvalidDirection = errors.New("session: invalid direction")

	// ErrInvalidRole is returned when the role is not Client or Lock.
	ErrInvalidRole = errors.New("session: invalid role")
)
