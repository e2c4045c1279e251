package spake2

import (
	"errors"
	"fmt"
)

// ErrInvalidCommitment is the error kind for unusable peer commitments.
var ErrInvalidCommitment = errors.New("spake2: invalid commitment")

// ErrCommitmentSize reports a commitment that is not 56 bytes long.
var ErrCommitmentSize = fmt.Errorf("%w: must be %d bytes", ErrInvalidCommitment, CommitmentSize)

func errInvalidCommitment(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalidCommitment, cause)
}
