package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA256 derives length bytes of key material using HKDF-SHA256 (RFC 5869).
//
// Parameters:
//   - inputKey: input keying material (IKM)
//   - salt: optional salt (nil selects a zero-filled salt)
//   - info: optional context info
//   - length: number of bytes to derive
func HKDFSHA256(inputKey, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, inputKey, salt, info)
	result := make([]byte, length)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}
