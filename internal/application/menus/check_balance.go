package menus

import (
	"context"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
)

// CheckBalanceHandler treats its single input as the PIN
type CheckBalanceHandler struct {
	deps *Deps
}

func (h *CheckBalanceHandler) Menu() session.Menu { return session.MenuCheckBalance }

func (h *CheckBalanceHandler) Handle(ctx context.Context, input string, s *session.Session) Response {
	cat, lang := h.deps.Catalog, s.Lang()

	balance, err := h.deps.Actions.CheckBalance(ctx, s.PhoneNumber, LastToken(input))
	if err != nil {
		return h.deps.actionFailure(s, "check_balance", KeyBalanceError, err)
	}

	amount := formatAmount(balance.Balance)
	body := cat.Text(lang, KeyBalance, amount, amount)
	if last := balance.LastTransaction; last != nil {
		key := KeyLastReceived
		if session.NormalizePhoneNumber(last.From) == s.PhoneNumber {
			key = KeyLastSent
		}
		body += cat.Text(lang, key, formatAmount(last.Amount))
	}
	return End(body)
}
