package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for password key derivation.
const (
	scryptN       = 32768
	scryptR       = 8
	scryptP       = 1
	scryptKeyLen  = 64
	scryptSaltLen = 16
)

// HashPassword derives a scrypt hash of the password with a fresh random salt
// and returns a "hash.salt" hex encoding.
func HashPassword(password string) (string, error) {
	salt := make([]byte, scryptSaltLen)
	if _, errRead := rand.Read(salt); errRead != nil {
		return "", fmt.Errorf("generate salt: %w", errRead)
	}

	derived, errDerive := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if errDerive != nil {
		return "", fmt.Errorf("derive key: %w", errDerive)
	}

	return hex.EncodeToString(derived) + "." + hex.EncodeToString(salt), nil
}

// VerifyPassword re-derives the hash of supplied with the salt stored in the
// encoding and compares in constant time. Malformed encodings and length
// mismatches report false rather than an error.
func VerifyPassword(supplied, stored string) bool {
	hashHex, saltHex, found := strings.Cut(stored, ".")
	if !found {
		return false
	}
	expected, errHash := hex.DecodeString(hashHex)
	if errHash != nil {
		return false
	}
	salt, errSalt := hex.DecodeString(saltHex)
	if errSalt != nil {
		return false
	}

	derived, errDerive := scrypt.Key([]byte(supplied), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if errDerive != nil {
		return false
	}
	if len(derived) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(derived, expected) == 1
}
