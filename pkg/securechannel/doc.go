// Package securechannel implements the handshake cryptography of a lock
// connection: connection requests, the SAT challenge/response exchange,
// session key derivation, and the one-time channel used while pairing.
//
// Authorization runs as follows:
//
//	client                                         lock
//	  | -- connection request (secure, client salt) -> |
//	  | <- internal reply (server salt at [5:17]) ---- |
//	  | -- bstr(challenge || h'14', challenge tag) --> |
//	  | <- response tag ------------------------------ |
//	  |         both sides derive (key, id)            |
//	  | == SendCAT over the encrypted session =======> |
//
// Tags and keys are bound to both salts and to the secret carried in the
// SAT, so a transcript from one connection is useless on the next.
package securechannel

// Protocol constants. These must match the lock bit for bit.
var (
	// HKDFSalt is the fixed HKDF salt for session derivation.
	HKDFSalt = []byte{
		0x00, 0x8a, 0x39, 0x36, 0x22, 0x04, 0x1f, 0x5f,
		0x0f, 0xc7, 0x5d, 0x97, 0xda, 0xee, 0x6e, 0x81,
		0xcb, 0xbb, 0x2b, 0xc7, 0x4f, 0x9c, 0xcc, 0x91,
		0xe7, 0x5e, 0x77, 0xa5, 0x6b, 0x4a, 0x4b, 0x05,
	}

	// HKDFInfo is the HKDF info string for session derivation.
	HKDFInfo = []byte("session key")

	// ChallengePrefix marks the client's challenge tag.
	ChallengePrefix = []byte{1}

	// ResponsePrefix marks the lock's response tag.
	ResponsePrefix = []byte{2}

	// SessionSaltPrefix starts the session key material.
	SessionSaltPrefix = []byte{2}

	// PairingClientNonce is the nonce of the client's pairing message.
	PairingClientNonce = []byte{0}

	// PairingLockNonce is the nonce of the lock's pairing reply.
	PairingLockNonce = []byte{1}

	requestPrefix  = []byte{0, 1}
	securePrefix   = []byte{0, 2, 0, 20, 2}
	insecurePrefix = []byte{0, 1, 0, 20, 0}
)

// Size constants.
const (
	// SaltSize is the length of the client and server salts.
	SaltSize = 12

	// ConnectionResponseSize is the length of a secure connection reply.
	ConnectionResponseSize = 17

	// TagSize is the length of challenge and response tags.
	TagSize = 16

	// SeparatorByte is appended to the challenge and prefixed to the tag
	// input.
	SeparatorByte = 0x14

	// PairingKeySize is the number of SPAKE2 key bytes used by the pairing
	// channel.
	PairingKeySize = 16
)
