package lock

import (
	"encoding/hex"
	"fmt"

	"github.com/backkem/senselock/pkg/securechannel"
)

// Credentials is the token pair issued to a client when it pairs with a
// lock. Both tokens are hex encoded; store them to authorize later.
type Credentials struct {
	// CAT is the client access token, sent once the session is up.
	CAT string

	// SAT is the session access token. It holds the challenge and the
	// secret the session keys are derived from.
	SAT string
}

// IsZero reports whether neither token is set.
func (c Credentials) IsZero() bool {
	return c.CAT == "" && c.SAT == ""
}

// decode parses both tokens.
func (c Credentials) decode() ([]byte, *securechannel.SAT, error) {
	if c.CAT == "" || c.SAT == "" {
		return nil, nil, fmt.Errorf("%w: both tokens are required", ErrInvalidCredentials)
	}

	cat, err := hex.DecodeString(c.CAT)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: CAT: %w", ErrInvalidCredentials, err)
	}

	sat, err := securechannel.ParseSAT(c.SAT)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return cat, sat, nil
}
