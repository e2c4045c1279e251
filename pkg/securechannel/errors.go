package securechannel

import (
	"errors"
	"fmt"

	"github.com/backkem/senselock/pkg/crypto"
)

// Errors
var (
	// ErrInvalidSalt is returned when a salt is not SaltSize bytes.
	ErrInvalidSalt = errors.New("securechannel: invalid salt length")

	// ErrInvalidConnectionResponse is returned when a secure connection
	// reply is not ConnectionResponseSize bytes.
	ErrInvalidConnectionResponse = errors.New("securechannel: invalid connection response")

	// ErrInvalidConnectionRequest is returned when a connection request
	// does not match either known layout.
	ErrInvalidConnectionRequest = errors.New("securechannel: invalid connection request")

	// ErrInvalidSAT is returned when a SAT cannot be decoded.
	ErrInvalidSAT = errors.New("securechannel: invalid SAT")

	// ErrInvalidChallenge is returned when a challenge message is malformed.
	ErrInvalidChallenge = errors.New("securechannel: invalid challenge")

	// ErrInvalidPairingKey is returned when the pairing key is too short.
	ErrInvalidPairingKey = errors.New("securechannel: invalid pairing key")

	// ErrResponseTagMismatch is returned when the lock's response tag does
	// not match the expected value.
	ErrResponseTagMismatch = fmt.Errorf("%w: securechannel: response tag mismatch", crypto.ErrAuthenticationFailed)

	// ErrChallengeTagMismatch is returned when the client's challenge tag
	// does not match the expected value.
	ErrChallengeTagMismatch = fmt.Errorf("%w: securechannel: challenge tag mismatch", crypto.ErrAuthenticationFailed)
)
