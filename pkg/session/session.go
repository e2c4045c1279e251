package session

import (
	"sync"

	"github.com/backkem/senselock/pkg/crypto"
)

// Size constants.
const (
	// KeySize is the session key length (AES-128).
	KeySize = 16

	// IDSize is the session identifier length.
	IDSize = 16

	// PrefixSize is the direction prefix length.
	PrefixSize = 3

	// NonceSize is the length of a session nonce.
	NonceSize = IDSize + PrefixSize + 1
)

// Session encrypts or decrypts one direction of a lock connection.
// It is safe for concurrent use; nonces are handed out in call order.
type Session struct {
	id        [IDSize]byte
	direction Direction
	aead      *crypto.EAX

	mu      sync.Mutex
	counter byte
}

// New creates a session for one direction.
func New(key, id []byte, direction Direction) (*Session, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if len(id) != IDSize {
		return nil, ErrInvalidSessionID
	}
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}

	aead, err := crypto.NewEAX(key)
	if err != nil {
		return nil, err
	}

	s := &Session{
		direction: direction,
		aead:      aead,
	}
	copy(s.id[:], id)
	return s, nil
}

// ID returns a copy of the session identifier.
func (s *Session) ID() []byte {
	return append([]byte{}, s.id[:]...)
}

// Direction returns the session direction.
func (s *Session) Direction() Direction {
	return s.direction
}

// Counter returns the counter value used by the most recent nonce.
func (s *Session) Counter() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Encrypt seals data under the next nonce.
func (s *Session) Encrypt(data []byte) ([]byte, error) {
	return s.aead.Encrypt(data, s.nextNonce(), nil)
}

// Decrypt opens data under the next nonce. The counter advances even when
// authentication fails.
func (s *Session) Decrypt(data []byte) ([]byte, error) {
	return s.aead.Decrypt(data, s.nextNonce(), nil)
}

// nextNonce advances the counter and builds the nonce. The counter is a
// single byte and wraps from 255 to 0.
func (s *Session) nextNonce() []byte {
	s.mu.Lock()
	s.counter++
	ctr := s.counter
	s.mu.Unlock()

	nonce := make([]byte, 0, NonceSize)
	nonce = append(nonce, s.id[:]...)
	nonce = append(nonce, s.direction.Prefix()...)
	return append(nonce, ctr)
}

// Pair holds the two sessions of one connection end. They are created
// together from the same key material and discarded together.
type Pair struct {
	role     Role
	outbound *Session
	inbound  *Session
}

// NewPair creates the sessions for role. The client encrypts ClientToLock
// and decrypts LockToClient; the lock does the reverse.
func NewPair(key, id []byte, role Role) (*Pair, error) {
	var out Direction
	switch role {
	case RoleClient:
		out = DirectionClientToLock
	case RoleLock:
		out = DirectionLockToClient
	default:
		return nil, ErrInvalidRole
	}

	outbound, err := New(key, id, out)
	if err != nil {
		return nil, err
	}
	inbound, err := New(key, id, out.Opposite())
	if err != nil {
		return nil, err
	}

	return &Pair{role: role, outbound: outbound, inbound: inbound}, nil
}

// Role returns the connection end this pair belongs to.
func (p *Pair) Role() Role {
	return p.role
}

// Seal encrypts an outbound message.
func (p *Pair) Seal(data []byte) ([]byte, error) {
	return p.outbound.Encrypt(data)
}

// Open decrypts an inbound message.
func (p *Pair) Open(data []byte) ([]byte, error) {
	return p.inbound.Decrypt(data)
}

// Outbound returns the encrypting session.
func (p *Pair) Outbound() *Session {
	return p.outbound
}

// Inbound returns the decrypting session.
func (p *Pair) Inbound() *Session {
	return p.inbound
}
