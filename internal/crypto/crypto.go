package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	SaltLen    = 16
	KeyLen     = 32
	ArgonTime  = 1
	ArgonMem   = 19 * 1024 // 19 MiB in KiB
	ArgonLanes = 2
)

// PasswordHash is a salted argon2id digest of an account password.
type PasswordHash struct {
	Salt []byte
	Key  []byte
}

// GenerateSalt returns a cryptographically random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit key from a password and salt using Argon2id.
func DeriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, ArgonTime, ArgonMem, ArgonLanes, KeyLen)
}

// HashPassword salts and hashes password.
func HashPassword(password string) (*PasswordHash, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	return &PasswordHash{Salt: salt, Key: DeriveKey(password, salt)}, nil
}

// Verify reports whether password matches h, in constant time.
func (h *PasswordHash) Verify(password string) bool {
	key := DeriveKey(password, h.Salt)
	return subtle.ConstantTimeCompare(key, h.Key) == 1
}
