package menus

import (
	"context"
	"fmt"
	"time"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/interfaces"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

// Handler owns the state machine of one menu. It may mutate s in place and
// must only interpret step values it set itself.
type Handler interface {
	Menu() session.Menu
	Handle(ctx context.Context, input string, s *session.Session) Response
}

// Texts holds the operator-configured values rendered in prompts
type Texts struct {
	SupportPhone           string
	SupportSMSCode         string
	WithdrawalCodeValidity time.Duration
}

// Deps are the collaborators shared by the handlers
type Deps struct {
	Actions     wallet.Actions
	Notifier    wallet.Notifier
	Preferences interfaces.PreferenceStore
	Catalog     *Catalog
	Texts       Texts
	Logger      *logging.ChanneledLogger
}

// actionFailure renders the result of a failed external action. Rejections are shown
// verbatim under the menu's failure key; anything else becomes the generic unavailability text.
func (d *Deps) actionFailure(s *session.Session, operation string, failedKey Key, err error) Response {
	if reason, ok := wallet.AsRejection(err); ok {
		d.Logger.WithSession(logging.ChannelWallet, s.SessionID, s.PhoneNumber).Info("Action rejected", "operation", operation, "reason", reason)
		return End(d.Catalog.Text(s.Lang(), failedKey, reason))
	}
	d.Logger.LogError(logging.ChannelWallet, operation, err, map[string]any{
		"sessionId": logging.MaskSessionID(s.SessionID),
		"phone":     logging.MaskPhone(s.PhoneNumber),
	})
	return End(d.Catalog.Text(s.Lang(), KeyUnavailable))
}

func (d *Deps) notify(phone, message string) {
	if d.Notifier == nil || phone == "" {
		return
	}
	d.Notifier.Notify(phone, message)
}

// resetToMain recovers from a step value the owning handler does not know
func (d *Deps) resetToMain(s *session.Session) Response {
	d.Logger.WithSession(logging.ChannelUSSD, s.SessionID, s.PhoneNumber).Warn("Unknown step, resetting to main menu", "menu", s.CurrentMenu, "step", s.Step)
	s.Reset()
	return Delegate(session.MenuMain, "")
}

// formatValidity renders a validity window as "15 minutes" or "2 hours"
func formatValidity(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
