// AES-128-EAX authenticated encryption.
// The lock protocol uses variable nonce lengths (1 byte while pairing,
// 20 bytes inside a session) with an empty associated-data field and a
// 16-byte tag appended to the ciphertext.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/ProtonMail/go-crypto/eax"
)

const (
	// EAXKeySize is the AES-128 key size in bytes.
	EAXKeySize = 16

	// EAXTagSize is the authentication tag size in bytes.
	EAXTagSize = 16

	// EAXMaxNonceSize bounds the nonce length accepted by Encrypt and Decrypt.
	EAXMaxNonceSize = 64
)

// Errors
var (
	// ErrAuthenticationFailed is the error kind for every integrity failure:
	// EAX tag mismatches and handshake tag mismatches both wrap it.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")

	ErrEAXInvalidKeySize     = errors.New("eax: invalid key size, must be 16 bytes")
	ErrEAXInvalidNonceSize   = errors.New("eax: invalid nonce size")
	ErrEAXCiphertextTooShort = fmt.Errorf("%w: eax: ciphertext shorter than tag", ErrAuthenticationFailed)
	ErrEAXAuthFailed         = fmt.Errorf("%w: eax: message authentication failed", ErrAuthenticationFailed)
)

// EAX is an AES-128-EAX cipher bound to a single key.
type EAX struct {
	aead cipher.AEAD
}

// NewEAX creates an AES-128-EAX cipher. The key must be exactly 16 bytes.
func NewEAX(key []byte) (*EAX, error) {
	if len(key) != EAXKeySize {
		return nil, ErrEAXInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := eax.NewEAXWithNonceAndTagSize(block, EAXMaxNonceSize, EAXTagSize)
	if err != nil {
		return nil, err
	}
	return &EAX{aead: aead}, nil
}

// Encrypt returns ciphertext || tag.
func (e *EAX) Encrypt(plaintext, nonce, adata []byte) ([]byte, error) {
	if len(nonce) == 0 || len(nonce) > EAXMaxNonceSize {
		return nil, ErrEAXInvalidNonceSize
	}
	return e.aead.Seal(nil, nonce, plaintext, adata), nil
}

// Decrypt verifies the trailing tag and returns the plaintext.
// Any integrity failure matches ErrAuthenticationFailed.
func (e *EAX) Decrypt(ciphertext, nonce, adata []byte) ([]byte, error) {
	if len(nonce) == 0 || len(nonce) > EAXMaxNonceSize {
		return nil, ErrEAXInvalidNonceSize
	}
	if len(ciphertext) < EAXTagSize {
		return nil, ErrEAXCiphertextTooShort
	}
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, adata)
	if err != nil {
		return nil, ErrEAXAuthFailed
	}
	return plaintext, nil
}

// EAXEncrypt is a one-shot helper around NewEAX and Encrypt.
func EAXEncrypt(key, plaintext, nonce, adata []byte) ([]byte, error) {
	c, err := NewEAX(key)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(plaintext, nonce, adata)
}

// EAXDecrypt is a one-shot helper around NewEAX and Decrypt.
func EAXDecrypt(key, ciphertext, nonce, adata []byte) ([]byte, error) {
	c, err := NewEAX(key)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(ciphertext, nonce, adata)
}
