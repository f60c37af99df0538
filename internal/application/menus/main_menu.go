package menus

import (
	"context"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
)

// Main menu options
const (
	digitSendMoney = "1"
	digitBalance   = "2"
	digitWithdraw  = "3"
	digitHelp      = "4"
	digitRegister  = "5"
	// digitLanguage is not listed on the menu but always accepted
	digitLanguage = "6"
)

// MainMenuHandler routes the first choice of a conversation
type MainMenuHandler struct {
	deps *Deps
}

func (h *MainMenuHandler) Menu() session.Menu { return session.MenuMain }

func (h *MainMenuHandler) Handle(ctx context.Context, input string, s *session.Session) Response {
	cat, lang := h.deps.Catalog, s.Lang()

	tokens := Tokens(input)
	if len(tokens) == 0 {
		return Continue(cat.Text(lang, KeyMainMenu))
	}
	// a dialled "6*N" goes straight to the language menu with the whole history
	if len(tokens) == 2 && tokens[0] == digitLanguage {
		s.Navigate(session.MenuLanguageSelection, 1)
		return Delegate(session.MenuLanguageSelection, input)
	}

	switch tokens[len(tokens)-1] {
	case digitSendMoney:
		s.Navigate(session.MenuSendMoney, 1)
		return Continue(cat.Text(lang, KeySendRecipient))
	case digitBalance:
		s.Navigate(session.MenuCheckBalance, 1)
		return Continue(cat.Text(lang, KeyBalancePrompt))
	case digitWithdraw:
		s.Navigate(session.MenuWithdraw, 1)
		return Continue(cat.Text(lang, KeyWithdrawPrompt))
	case digitHelp:
		return End(cat.Text(lang, KeyHelp, h.deps.Texts.SupportPhone, h.deps.Texts.SupportSMSCode))
	case digitRegister:
		s.Navigate(session.MenuRegister, 1)
		return Continue(cat.Text(lang, KeyRegisterPrompt))
	case digitLanguage:
		s.Navigate(session.MenuLanguageSelection, 1)
		return Delegate(session.MenuLanguageSelection, input)
	default:
		return Continue(cat.Text(lang, KeyInvalidOption))
	}
}
