package stores

import (
	"context"
	"fmt"
	"sync"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/interfaces"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

// PreferencesStore keeps language preferences for the process lifetime
type PreferencesStore struct {
	languages map[string]session.Language
	mu        sync.RWMutex
	logger    *logging.ChanneledLogger
}

var _ interfaces.PreferenceStore = (*PreferencesStore)(nil)

// NewPreferencesStore creates an empty memory preference store
func NewPreferencesStore(logger *logging.ChanneledLogger) *PreferencesStore {
	return &PreferencesStore{
		languages: make(map[string]session.Language),
		logger:    logger,
	}
}

// GetLanguage returns the stored language for phoneNumber
func (ps *PreferencesStore) GetLanguage(ctx context.Context, phoneNumber string) (session.Language, bool, error) {
	phone := session.NormalizePhoneNumber(phoneNumber)
	ps.mu.RLock()
	lang, ok := ps.languages[phone]
	ps.mu.RUnlock()
	if ps.logger != nil {
		ps.logger.Session().Debug("Cache operation", "operation", "get", "type", "language", "phone", logging.MaskPhone(phone), "hit", ok)
	}
	return lang, ok, nil
}

// SetLanguage overwrites the language for phoneNumber
func (ps *PreferencesStore) SetLanguage(ctx context.Context, phoneNumber string, lang session.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}
	phone := session.NormalizePhoneNumber(phoneNumber)
	ps.mu.Lock()
	ps.languages[phone] = lang
	ps.mu.Unlock()
	if ps.logger != nil {
		ps.logger.Session().Debug("Cache operation", "operation", "set", "type", "language", "phone", logging.MaskPhone(phone), "language", lang)
	}
	return nil
}
