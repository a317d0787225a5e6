package common

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandByteArray returns size bytes from crypto/rand.
// It panics if the system random source fails, which only happens on a
// broken platform.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandURLSafeString returns size random bytes encoded as unpadded
// URL-safe base64. Used for temporary passwords.
func MakeRandURLSafeString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. Nil-safe.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
