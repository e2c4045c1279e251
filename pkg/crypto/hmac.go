package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// HMACSHA256 computes the HMAC-SHA256 of a message using the given key.
func HMACSHA256(key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(nil)
}

// TruncatedHMACSHA256 computes HMAC-SHA256 and keeps the first n bytes.
// n larger than the digest length returns the full digest.
func TruncatedHMACSHA256(key, message []byte, n int) []byte {
	mac := HMACSHA256(key, message)
	if n < len(mac) {
		mac = mac[:n]
	}
	return mac
}

// HMACEqual compares two MACs in constant time.
func HMACEqual(mac1, mac2 []byte) bool {
	return hmac.Equal(mac1, mac2)
}
