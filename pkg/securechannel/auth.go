package securechannel

import (
	"fmt"

	"github.com/backkem/senselock/pkg/crypto"
	"github.com/backkem/senselock/pkg/message"
)

// AuthTag computes a challenge or response tag.
//
//	tag = HMAC-SHA256(
//	    key = secret,
//	    msg = cbor(bstr(0x14 || cbor(bstr(prefix || clientSalt || serverSalt)))),
//	)[0:16]
func AuthTag(prefix, clientSalt, serverSalt, secret []byte) ([]byte, error) {
	if len(clientSalt) != SaltSize || len(serverSalt) != SaltSize {
		return nil, ErrInvalidSalt
	}

	material := make([]byte, 0, len(prefix)+2*SaltSize)
	material = append(material, prefix...)
	material = append(material, clientSalt...)
	material = append(material, serverSalt...)

	inner, err := message.Encode(message.Bytes(material))
	if err != nil {
		return nil, err
	}

	data := append([]byte{SeparatorByte}, inner...)
	outer, err := message.Encode(message.Bytes(data))
	if err != nil {
		return nil, err
	}

	return crypto.TruncatedHMACSHA256(secret, outer, TagSize), nil
}

// Challenge is the client half of the challenge/response exchange.
type Challenge struct {
	// Message is sent to the lock as one data message.
	Message []byte

	// ExpectedResponse is the tag the lock must answer with.
	ExpectedResponse []byte
}

// NewChallenge builds the challenge message for sat and the salts of the
// current connection.
func NewChallenge(sat *SAT, clientSalt, serverSalt []byte) (*Challenge, error) {
	challengeTag, err := AuthTag(ChallengePrefix, clientSalt, serverSalt, sat.Secret)
	if err != nil {
		return nil, err
	}
	responseTag, err := AuthTag(ResponsePrefix, clientSalt, serverSalt, sat.Secret)
	if err != nil {
		return nil, err
	}

	items := make([]message.Value, 0, len(sat.Challenge)+1)
	items = append(items, sat.Challenge...)
	items = append(items, message.Bytes([]byte{SeparatorByte}))

	seq, err := message.EncodeAll(message.Array(items...), message.Bytes(challengeTag))
	if err != nil {
		return nil, err
	}
	msg, err := message.Encode(message.Bytes(seq))
	if err != nil {
		return nil, err
	}

	return &Challenge{Message: msg, ExpectedResponse: responseTag}, nil
}

// Verify checks the lock's response tag.
func (c *Challenge) Verify(response []byte) error {
	if len(response) != TagSize || !crypto.HMACEqual(response, c.ExpectedResponse) {
		return ErrResponseTagMismatch
	}
	return nil
}

// AnswerChallenge is the lock side of NewChallenge. It checks the challenge
// against sat and returns the response tag to send back.
func AnswerChallenge(msg []byte, sat *SAT, clientSalt, serverSalt []byte) ([]byte, error) {
	wrapped, err := message.Decode(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidChallenge, err)
	}
	seq, ok := wrapped.Bytes()
	if !ok {
		return nil, fmt.Errorf("%w: not a byte string", ErrInvalidChallenge)
	}

	values, err := message.DecodeAll(seq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidChallenge, err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%w: %d items", ErrInvalidChallenge, len(values))
	}

	items, ok := values[0].Items()
	if !ok || len(items) != len(sat.Challenge)+1 {
		return nil, fmt.Errorf("%w: challenge shape", ErrInvalidChallenge)
	}
	for i, want := range sat.Challenge {
		if !items[i].Equal(want) {
			return nil, fmt.Errorf("%w: challenge item %d", ErrInvalidChallenge, i)
		}
	}
	if !items[len(items)-1].Equal(message.Bytes([]byte{SeparatorByte})) {
		return nil, fmt.Errorf("%w: missing separator", ErrInvalidChallenge)
	}

	tag, ok := values[1].Bytes()
	if !ok {
		return nil, fmt.Errorf("%w: tag is not a byte string", ErrInvalidChallenge)
	}
	want, err := AuthTag(ChallengePrefix, clientSalt, serverSalt, sat.Secret)
	if err != nil {
		return nil, err
	}
	if !crypto.HMACEqual(tag, want) {
		return nil, ErrChallengeTagMismatch
	}

	return AuthTag(ResponsePrefix, clientSalt, serverSalt, sat.Secret)
}
