// Package security provides id generation, service tokens, PIN hashing and rate limiting
package security

import (
	"github.com/oklog/ulid/v2"
)

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}
