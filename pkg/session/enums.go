// Package session implements the encrypted sessions of a lock connection.
//
// A successful authorization yields one 16-byte session key and one 16-byte
// session identifier. Two unidirectional sessions are built from them, one
// per direction, distinguished by a fixed nonce prefix:
//
//	nonce = session_id(16) || direction_prefix(3) || counter(1)
//
// Each session keeps its own single-byte counter, incremented before every
// encrypt or decrypt. Ciphertext produced for one direction does not
// authenticate under the other.
package session

// Direction identifies which way a session's traffic flows.
type Direction int

const (
	// DirectionUnknown indicates an uninitialized direction.
	DirectionUnknown Direction = iota

	// DirectionClientToLock protects requests sent to the lock.
	DirectionClientToLock

	// DirectionLockToClient protects replies sent by the lock.
	DirectionLockToClient
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionClientToLock:
		return "ClientToLock"
	case DirectionLockToClient:
		return "LockToClient"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the direction is a defined value.
func (d Direction) IsValid() bool {
	return d == DirectionClientToLock || d == DirectionLockToClient
}

// Prefix returns the nonce prefix of the direction, or nil if invalid.
func (d Direction) Prefix() []byte {
	switch d {
	case DirectionClientToLock:
		return []byte{1, 0, 0}
	case DirectionLockToClient:
		return []byte{3, 0, 0}
	default:
		return nil
	}
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionClientToLock:
		return DirectionLockToClient
	case DirectionLockToClient:
		return DirectionClientToLock
	default:
		return DirectionUnknown
	}
}

// Role identifies which end of the connection owns a session pair.
type Role int

const (
	// RoleUnknown indicates an uninitialized role.
	RoleUnknown Role = iota

	// RoleClient is the central that issues requests.
	RoleClient

	// RoleLock is the lock answering requests.
	RoleLock
)

// String returns a human-readable name for the role.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "Client"
	case RoleLock:
		return "Lock"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the role is a defined value.
func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleLock
}
