package menus

import (
	"context"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

// Register steps
const (
	registerStepPIN     = 1
	registerStepConfirm = 2
)

// RegisterHandler collects a PIN twice and registers the caller.
// Only a bcrypt hash of the first PIN is kept in the session.
type RegisterHandler struct {
	deps *Deps
}

func (h *RegisterHandler) Menu() session.Menu { return session.MenuRegister }

func (h *RegisterHandler) Handle(ctx context.Context, input string, s *session.Session) Response {
	cat, lang := h.deps.Catalog, s.Lang()
	value := LastToken(input)

	switch s.Step {
	case registerStepPIN:
		if !ValidPIN(value) {
			return Continue(cat.Text(lang, KeyRegisterInvalid))
		}
		hash, err := security.HashPIN(value)
		if err != nil {
			h.deps.Logger.LogError(logging.ChannelUSSD, "hash_pin", err, nil)
			return End(cat.Text(lang, KeyUnavailable))
		}
		s.Data.PINHash = hash
		s.Step = registerStepConfirm
		return Continue(cat.Text(lang, KeyRegisterConfirm))

	case registerStepConfirm:
		if !security.PINMatches(s.Data.PINHash, value) {
			s.Data.PINHash = ""
			s.Step = registerStepPIN
			return Continue(cat.Text(lang, KeyRegisterMismatch))
		}
		if err := h.deps.Actions.Register(ctx, s.PhoneNumber, value); err != nil {
			return h.deps.actionFailure(s, "register", KeyRegisterFailed, err)
		}
		h.deps.Logger.WithSession(logging.ChannelUSSD, s.SessionID, s.PhoneNumber).Info("Subscriber registered")
		return End(cat.Text(lang, KeyRegisterSuccess))

	default:
		return h.deps.resetToMain(s)
	}
}
