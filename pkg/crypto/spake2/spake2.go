// Package spake2 implements the SPAKE2 password-authenticated key exchange
// over P-224 used to pair a new client with a lock.
//
// Both sides hash the shared PIN to a scalar w and pick an ephemeral scalar.
// The initiator (client) blinds with M and unblinds the peer with N; the
// responder (lock) does the opposite:
//
//	Initiator                              Responder
//	---------                              ---------
//	T = x·G + w·M  ------------T------->
//	               <-----------S--------   S = y·G + w·N
//	K = x·(S - w·N)                        K = y·(T - w·M)
//
// K is returned as the 56-byte x || y encoding. The session key material is
// taken from its leading bytes by the caller.
package spake2

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/backkem/senselock/pkg/crypto"
	"github.com/backkem/senselock/pkg/crypto/p224"
)

const (
	// ScalarSize is the size of the ephemeral scalar in bytes.
	ScalarSize = 28

	// CommitmentSize is the size of an encoded commitment in bytes.
	CommitmentSize = p224.PointSize

	// KeySize is the size of the computed shared key in bytes.
	KeySize = p224.PointSize
)

// M and N are the protocol's fixed blinding points.
var (
	pointM = mustPoint(
		"4d48c8ea8d23392e07e851fa6aa82048094e051372499c6fba62a74b",
		"6c185cabd52e2e8a9e2d21b0ec4ee141211fe29d64ea4d04463ae833",
	)
	pointN = mustPoint(
		"0b1cfc6a407cdcb15dc1704cd13edaab8fdeff8cfbfb50d2c81de2c2",
		"3e14f62996080907b56dd282071aa7a121c39934bc30da5bcbc6a3cc",
	)
)

// Role selects which blinding point a party uses for its own commitment.
type Role int

const (
	// RoleInitiator is the client starting the pairing.
	RoleInitiator Role = iota
	// RoleResponder is the lock.
	RoleResponder
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// SPAKE2 holds one party's state for a single exchange.
type SPAKE2 struct {
	role Role
	w    *big.Int
	x    *big.Int
	rand io.Reader
}

// New creates a SPAKE2 party for the given role. The password hash is the
// first 28 bytes of SHA-256(password), used as a scalar without reduction.
func New(role Role, password []byte) *SPAKE2 {
	return &SPAKE2{
		role: role,
		w:    PasswordScalar(password),
		rand: rand.Reader,
	}
}

// PasswordScalar returns the scalar w derived from a password.
func PasswordScalar(password []byte) *big.Int {
	digest := crypto.SHA256(password)
	return new(big.Int).SetBytes(digest[:ScalarSize])
}

// SetRandom sets the source for the ephemeral scalar. It has no effect once
// the scalar has been drawn.
func (s *SPAKE2) SetRandom(r io.Reader) {
	s.rand = r
}

// Role returns the party's role.
func (s *SPAKE2) Role() Role {
	return s.role
}

// Commitment returns this party's encoded commitment x·G + w·(M or N).
func (s *SPAKE2) Commitment() ([]byte, error) {
	x, err := s.scalar()
	if err != nil {
		return nil, err
	}

	xG, err := p224.ScalarBaseMult(x)
	if err != nil {
		return nil, err
	}
	wM, err := p224.ScalarMult(s.ownPoint(), s.w)
	if err != nil {
		return nil, err
	}
	t, err := p224.AddPoints(xG, wM)
	if err != nil {
		return nil, err
	}
	return p224.Encode(t), nil
}

// ComputeKey derives the shared key from the peer's encoded commitment.
// Commitments that are not 56 bytes or not on the curve fail with an error
// matching ErrInvalidCommitment.
func (s *SPAKE2) ComputeKey(peerCommitment []byte) ([]byte, error) {
	if len(peerCommitment) != CommitmentSize {
		return nil, ErrCommitmentSize
	}
	peer, err := p224.Decode(peerCommitment)
	if err != nil {
		return nil, errInvalidCommitment(err)
	}

	x, err := s.scalar()
	if err != nil {
		return nil, err
	}

	wN, err := p224.ScalarMult(s.peerPoint(), s.w)
	if err != nil {
		return nil, err
	}
	unblinded, err := p224.SubPoints(peer, wN)
	if err != nil {
		return nil, err
	}
	k, err := p224.ScalarMult(unblinded, x)
	if err != nil {
		return nil, err
	}
	return p224.Encode(k), nil
}

func (s *SPAKE2) ownPoint() *p224.Point {
	if s.role == RoleInitiator {
		return pointM
	}
	return pointN
}

func (s *SPAKE2) peerPoint() *p224.Point {
	if s.role == RoleInitiator {
		return pointN
	}
	return pointM
}

// scalar draws the ephemeral scalar on first use and rejects zero.
func (s *SPAKE2) scalar() (*big.Int, error) {
	if s.x != nil {
		return s.x, nil
	}
	for {
		b := make([]byte, ScalarSize)
		if _, err := io.ReadFull(s.rand, b); err != nil {
			return nil, err
		}
		x := new(big.Int).SetBytes(b)
		if x.Sign() > 0 {
			s.x = x
			return x, nil
		}
	}
}

func mustPoint(x, y string) *p224.Point {
	xb, ok := new(big.Int).SetString(x, 16)
	if !ok {
		panic("spake2: invalid constant")
	}
	yb, ok := new(big.Int).SetString(y, 16)
	if !ok {
		panic("spake2: invalid constant")
	}
	p, err := p224.NewPoint(xb.Bytes(), yb.Bytes())
	if err != nil {
		panic(err)
	}
	return p
}
