// Package crypto provides the symmetric primitives used by the lock protocol:
// SHA-256, HMAC-SHA256, HKDF-SHA256 and AES-128-EAX.
package crypto

import (
	"crypto/sha256"
)

// SHA256LenBytes is the SHA-256 output length in bytes.
const SHA256LenBytes = 32

// SHA256 computes the SHA-256 digest of a message.
func SHA256(message []byte) [SHA256LenBytes]byte {
	return sha256.Sum256(message)
}

// SHA256Slice computes the SHA-256 digest and returns it as a slice.
func SHA256Slice(message []byte) []byte {
	h := sha256.Sum256(message)
	return h[:]
}
