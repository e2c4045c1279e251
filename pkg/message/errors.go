package message

import (
	"errors"
	"fmt"
)

// ErrMalformed is the error kind for undecodable messages.
var ErrMalformed = errors.New("message: malformed message")

// Errors
var (
	ErrTruncated       = fmt.Errorf("%w: truncated data item", ErrMalformed)
	ErrTrailingData    = fmt.Errorf("%w: trailing data after item", ErrMalformed)
	ErrUnsupportedKey  = fmt.Errorf("%w: map key is not an integer", ErrMalformed)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported data item", ErrMalformed)
	ErrIntegerOverflow = fmt.Errorf("%w: integer out of range", ErrMalformed)
	ErrMissingPayload  = fmt.Errorf("%w: missing response payload", ErrMalformed)
)

// ErrProtocol is the error kind matched by every *ProtocolError.
var ErrProtocol = errors.New("message: protocol error")

// ProtocolError is returned when the lock answers a request with an error
// object. Code is the lock's numeric error code.
type ProtocolError struct {
	Class uint8
	Type  uint8
	Code  int64
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("message: request [%d,%d] failed with code %d", e.Class, e.Type, e.Code)
}

// Unwrap returns ErrProtocol.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

func malformed(cause error) error {
	return fmt.Errorf("%w: %w", ErrMalformed, cause)
}

func unexpectedKind(want, got Kind) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrMalformed, want, got)
}
