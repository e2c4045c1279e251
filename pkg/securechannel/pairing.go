package securechannel

import (
	"fmt"

	"github.com/backkem/senselock/pkg/crypto"
	"github.com/backkem/senselock/pkg/message"
	"github.com/backkem/senselock/pkg/session"
)

// PairingChannel protects the two pairing messages exchanged before any
// session exists. It has no session identifier and no counter: each
// direction uses its own fixed one-byte nonce, once.
type PairingChannel struct {
	aead      *crypto.EAX
	sealNonce []byte
	openNonce []byte
}

// NewPairingChannel keys the channel with the first PairingKeySize bytes
// of the SPAKE2 shared key.
func NewPairingChannel(sharedKey []byte, role session.Role) (*PairingChannel, error) {
	if len(sharedKey) < PairingKeySize {
		return nil, ErrInvalidPairingKey
	}

	aead, err := crypto.NewEAX(sharedKey[:PairingKeySize])
	if err != nil {
		return nil, err
	}

	c := &PairingChannel{aead: aead}
	switch role {
	case session.RoleClient:
		c.sealNonce, c.openNonce = PairingClientNonce, PairingLockNonce
	case session.RoleLock:
		c.sealNonce, c.openNonce = PairingLockNonce, PairingClientNonce
	default:
		return nil, session.ErrInvalidRole
	}
	return c, nil
}

// Seal encrypts this end's pairing message.
func (c *PairingChannel) Seal(plaintext []byte) ([]byte, error) {
	return c.aead.Encrypt(plaintext, c.sealNonce, nil)
}

// Open decrypts the peer's pairing message.
func (c *PairingChannel) Open(ciphertext []byte) ([]byte, error) {
	return c.aead.Decrypt(ciphertext, c.openNonce, nil)
}

// SealTimestamp encrypts the client's clock reading {0: unix}.
func (c *PairingChannel) SealTimestamp(unix int64) ([]byte, error) {
	pt, err := message.Encode(message.MapValue(message.NewMap().Set(0, message.Int(unix))))
	if err != nil {
		return nil, err
	}
	return c.Seal(pt)
}

// OpenTimestamp is the lock side of SealTimestamp.
func (c *PairingChannel) OpenTimestamp(ciphertext []byte) (int64, error) {
	pt, err := c.Open(ciphertext)
	if err != nil {
		return 0, err
	}
	m, err := message.DecodeMap(pt)
	if err != nil {
		return 0, err
	}
	ts, ok := m.Int(0)
	if !ok {
		return 0, fmt.Errorf("%w: timestamp", message.ErrMissingPayload)
	}
	return ts, nil
}

// Tokens is the token pair issued during pairing.
type Tokens struct {
	CAT []byte
	SAT []byte
}

// SealTokens encrypts {0: cat, 1: sat}. Used by the lock.
func (c *PairingChannel) SealTokens(t Tokens) ([]byte, error) {
	m := message.NewMap().
		Set(0, message.Bytes(t.CAT)).
		Set(1, message.Bytes(t.SAT))
	pt, err := message.Encode(message.MapValue(m))
	if err != nil {
		return nil, err
	}
	return c.Seal(pt)
}

// OpenTokens decrypts the token pair sent by the lock.
func (c *PairingChannel) OpenTokens(ciphertext []byte) (Tokens, error) {
	pt, err := c.Open(ciphertext)
	if err != nil {
		return Tokens{}, err
	}
	m, err := message.DecodeMap(pt)
	if err != nil {
		return Tokens{}, err
	}

	cat, ok := m.Bytes(0)
	if !ok {
		return Tokens{}, fmt.Errorf("%w: CAT", message.ErrMissingPayload)
	}
	sat, ok := m.Bytes(1)
	if !ok {
		return Tokens{}, fmt.Errorf("%w: SAT", message.ErrMissingPayload)
	}
	return Tokens{CAT: cat, SAT: sat}, nil
}
