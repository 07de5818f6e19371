package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor used when hashing operator API keys.
	BcryptCost = 12
)

// HashAPIKey generates a bcrypt hash of an operator API key, for writing
// into ADMIN_API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyAPIKey checks a presented key against the configured bcrypt hash.
func VerifyAPIKey(key, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}
