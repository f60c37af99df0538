// Package stores provides concrete session and preference store implementations
package stores

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/interfaces"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

// SessionsStore is the in-process session store guarded by a single RWMutex
type SessionsStore struct {
	sessions    map[string]*session.Session
	mu          sync.RWMutex
	timeout     time.Duration
	preferences interfaces.PreferenceStore
	logger      *logging.ChanneledLogger
	now         func() time.Time
}

var _ interfaces.SessionStore = (*SessionsStore)(nil)

// NewSessionsStore creates a memory store. preferences may be nil.
func NewSessionsStore(timeout time.Duration, preferences interfaces.PreferenceStore, logger *logging.ChanneledLogger) *SessionsStore {
	if logger != nil {
		logger.Session().Info("Initializing sessions store", "backend", "memory", "timeout", timeout)
	}
	return &SessionsStore{
		sessions:    make(map[string]*session.Session),
		timeout:     timeout,
		preferences: preferences,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (ss *SessionsStore) WithClock(now func() time.Time) *SessionsStore {
	ss.now = now
	return ss
}

// GetOrCreate returns the live session or a fresh one seeded from the language preference
func (ss *SessionsStore) GetOrCreate(ctx context.Context, sessionID, phoneNumber string) (*session.Session, error) {
	start := time.Now()
	now := ss.now()

	ss.mu.Lock()
	if existing, ok := ss.sessions[sessionID]; ok && !existing.IsExpired(now, ss.timeout) {
		existing.Touch(now)
		clone := existing.Clone()
		ss.mu.Unlock()
		ss.debug("get_or_create", sessionID, true, start)
		return clone, nil
	}
	ss.mu.Unlock()

	fresh := session.NewSession(sessionID, phoneNumber, now)
	fresh.Language = seedLanguage(ctx, ss.preferences, fresh.PhoneNumber, ss.logger)

	ss.mu.Lock()
	defer ss.mu.Unlock()
	// another request may have created it while the preference was read
	if existing, ok := ss.sessions[sessionID]; ok && !existing.IsExpired(now, ss.timeout) {
		existing.Touch(now)
		ss.debug("get_or_create", sessionID, true, start)
		return existing.Clone(), nil
	}
	ss.sessions[sessionID] = fresh
	ss.debug("get_or_create", sessionID, false, start)
	return fresh.Clone(), nil
}

// Update applies mutate to a live session
func (ss *SessionsStore) Update(ctx context.Context, sessionID string, mutate func(*session.Session)) error {
	start := time.Now()
	ss.mu.Lock()
	defer ss.mu.Unlock()

	existing, ok := ss.sessions[sessionID]
	if !ok || existing.IsExpired(ss.now(), ss.timeout) {
		return fmt.Errorf("update %s: %w", logging.MaskSessionID(sessionID), interfaces.ErrSessionNotFound)
	}
	mutate(existing)
	existing.SessionID = sessionID
	ss.debug("update", sessionID, true, start)
	return nil
}

// Delete removes a session
func (ss *SessionsStore) Delete(ctx context.Context, sessionID string) error {
	start := time.Now()
	ss.mu.Lock()
	_, found := ss.sessions[sessionID]
	delete(ss.sessions, sessionID)
	ss.mu.Unlock()
	ss.debug("delete", sessionID, found, start)
	return nil
}

// SweepExpired checks and deletes under one write lock so an in-flight GetOrCreate
// never loses a session it has just refreshed
func (ss *SessionsStore) SweepExpired(ctx context.Context) (int, error) {
	now := ss.now()
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, s := range ss.sessions {
		if s.IsExpired(now, ss.timeout) {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored sessions
func (ss *SessionsStore) Count(ctx context.Context) (int, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions), nil
}

func (ss *SessionsStore) debug(operation, sessionID string, hit bool, start time.Time) {
	if ss.logger != nil {
		ss.logger.Session().Debug("Cache operation", "operation", operation, "type", "session", "sessionId", logging.MaskSessionID(sessionID), "hit", hit, "duration", time.Since(start))
	}
}

// seedLanguage reads the stored preference for phone. Lookup failures fall back to the default.
func seedLanguage(ctx context.Context, preferences interfaces.PreferenceStore, phone string, logger *logging.ChanneledLogger) session.Language {
	if preferences == nil {
		return ""
	}
	lang, ok, err := preferences.GetLanguage(ctx, phone)
	if err != nil {
		if logger != nil {
			logger.LogError(logging.ChannelSession, "seed_language", err, map[string]any{"phone": logging.MaskPhone(phone)})
		}
		return ""
	}
	if !ok {
		return ""
	}
	return lang
}
