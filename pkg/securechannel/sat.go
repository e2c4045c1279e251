package securechannel

import (
	"encoding/hex"
	"fmt"

	"github.com/backkem/senselock/pkg/message"
)

// SAT is a decoded session authorization token. On the wire it is a CBOR
// byte string wrapping the sequence [challenge array, secret bytes], and
// callers exchange it as hex.
type SAT struct {
	// Challenge is replayed to the lock, with a separator appended, at
	// the start of every authorization.
	Challenge []message.Value

	// Secret keys the challenge/response tags and the session derivation.
	Secret []byte
}

// ParseSAT decodes a hex SAT.
func ParseSAT(s string) (*SAT, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSAT, err)
	}
	return DecodeSAT(raw)
}

// DecodeSAT decodes SAT bytes.
func DecodeSAT(raw []byte) (*SAT, error) {
	wrapped, err := message.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSAT, err)
	}
	seq, ok := wrapped.Bytes()
	if !ok {
		return nil, fmt.Errorf("%w: not a byte string", ErrInvalidSAT)
	}

	values, err := message.DecodeAll(seq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSAT, err)
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: %d items", ErrInvalidSAT, len(values))
	}

	challenge, ok := values[0].Items()
	if !ok {
		return nil, fmt.Errorf("%w: challenge is %s", ErrInvalidSAT, values[0].Kind())
	}
	secret, ok := values[1].Bytes()
	if !ok || len(secret) == 0 {
		return nil, fmt.Errorf("%w: missing secret", ErrInvalidSAT)
	}

	return &SAT{Challenge: challenge, Secret: secret}, nil
}

// Encode returns the SAT bytes.
func (s *SAT) Encode() ([]byte, error) {
	challenge := s.Challenge
	if challenge == nil {
		challenge = []message.Value{}
	}

	seq, err := message.EncodeAll(message.Array(challenge...), message.Bytes(s.Secret))
	if err != nil {
		return nil, err
	}
	return message.Encode(message.Bytes(seq))
}

// String returns the hex form of the SAT, or "" if it cannot be encoded.
func (s *SAT) String() string {
	raw, err := s.Encode()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(raw)
}
