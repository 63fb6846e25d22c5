package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashCost keeps parity with the installations already in the wild.
const hashCost = 10

// Hash returns a bcrypt hash of the password.
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks a password against its bcrypt hash.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
