package common

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandByteArray returns n cryptographically random bytes.
// It panics only if the platform CSPRNG is unavailable.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString returns a hex string built from n random bytes
// (so the result is 2*n characters long).
func MakeRandHexString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
