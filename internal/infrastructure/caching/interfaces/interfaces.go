// Package interfaces defines the storage contracts for USSD conversation state.
package interfaces

import (
	"context"
	"errors"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
)

// ErrSessionNotFound is returned by Update when no live session exists for the id
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps one Session per gateway session id and applies the inactivity window.
// Implementations must be safe for concurrent use across distinct ids.
type SessionStore interface {
	// GetOrCreate returns the live session for sessionID, or stores and returns a fresh one
	// when it is absent or expired. LastActivity is always advanced. The returned value is a copy.
	GetOrCreate(ctx context.Context, sessionID, phoneNumber string) (*session.Session, error)
	// Update applies mutate to the stored session. It never creates one.
	Update(ctx context.Context, sessionID string, mutate func(*session.Session)) error
	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, sessionID string) error
	// SweepExpired removes every expired session and reports how many were removed.
	SweepExpired(ctx context.Context) (int, error)
	// Count returns the number of stored sessions, expired or not.
	Count(ctx context.Context) (int, error)
}

// PreferenceStore remembers the language chosen by each phone number across sessions
type PreferenceStore interface {
	GetLanguage(ctx context.Context, phoneNumber string) (session.Language, bool, error)
	SetLanguage(ctx context.Context, phoneNumber string, lang session.Language) error
}
