package menus

import (
	"context"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

var languageChoices = map[string]session.Language{
	"1": session.LanguageEnglish,
	"2": session.LanguageLuganda,
	"3": session.LanguageSwahili,
}

const choiceBack = "0"

// LanguageHandler switches the prompt language and remembers it for the phone number
type LanguageHandler struct {
	deps *Deps
}

func (h *LanguageHandler) Menu() session.Menu { return session.MenuLanguageSelection }

func (h *LanguageHandler) Handle(ctx context.Context, input string, s *session.Session) Response {
	cat := h.deps.Catalog
	choice := languageInput(input)

	if choice == choiceBack {
		s.Reset()
		return Delegate(session.MenuMain, "")
	}

	lang, ok := languageChoices[choice]
	if !ok {
		return Continue(cat.Text(s.Lang(), KeySelectLanguage))
	}

	s.Language = lang
	if h.deps.Preferences != nil {
		if err := h.deps.Preferences.SetLanguage(ctx, s.PhoneNumber, lang); err != nil {
			h.deps.Logger.LogError(logging.ChannelSession, "save_language", err, map[string]any{
				"phone": logging.MaskPhone(s.PhoneNumber),
			})
		}
	}
	h.deps.Logger.WithSession(logging.ChannelUSSD, s.SessionID, s.PhoneNumber).Info("Language selected", "language", lang)

	return Continue(cat.Text(lang, KeyLanguageSet) + "\n\n" + cat.Text(lang, KeyPressZeroBack))
}
