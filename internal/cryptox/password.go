// Package cryptox implements password hashing for credential storage.
// Passwords are never stored; only an Argon2id digest and the per-user
// random salt are persisted.
package cryptox

import (
	"crypto/subtle"

	"github.com/avolkovs/taskdeck/internal/common"
	"golang.org/x/crypto/argon2"
)

const saltLength = 16

// Argon2id parameters: 1 pass, 64 MiB, 4 lanes, 32-byte key.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// GenerateSalt returns a fresh random salt for a new credential.
func GenerateSalt() []byte {
	return common.GenerateRandByteArray(saltLength)
}

// HashPassword derives the stored digest from a plaintext password and salt.
func HashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword reports whether the candidate password matches the stored
// digest. The comparison is constant-time.
func VerifyPassword(password string, salt, digest []byte) bool {
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(candidate, digest) == 1
}
