package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPIN hashes a PIN so it can sit in transient session state without the clear value
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hash), nil
}

// PINMatches reports whether pin matches a hash produced by HashPIN
func PINMatches(hash, pin string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
