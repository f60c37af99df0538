package menus

import (
	"context"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

// Withdraw steps
const (
	withdrawStepAmount = 1
	withdrawStepPIN    = 2
)

// WithdrawHandler collects amount and PIN, then asks for a withdrawal code
type WithdrawHandler struct {
	deps *Deps
}

func (h *WithdrawHandler) Menu() session.Menu { return session.MenuWithdraw }

func (h *WithdrawHandler) Handle(ctx context.Context, input string, s *session.Session) Response {
	cat, lang := h.deps.Catalog, s.Lang()
	value := LastToken(input)

	switch s.Step {
	case withdrawStepAmount:
		amount, ok := ParseAmount(value)
		if !ok {
			return Continue(cat.Text(lang, KeyInvalidAmount))
		}
		s.Data.Amount = amount
		s.Step = withdrawStepPIN
		return Continue(cat.Text(lang, KeyEnterPIN))

	case withdrawStepPIN:
		h.deps.Logger.WithSession(logging.ChannelUSSD, s.SessionID, s.PhoneNumber).Info("Submitting withdrawal", "amount", s.Data.Amount)

		code, err := h.deps.Actions.InitiateWithdrawal(ctx, wallet.WithdrawalRequest{
			Phone:  s.PhoneNumber,
			Amount: s.Data.Amount,
			PIN:    value,
		})
		if err != nil {
			return h.deps.actionFailure(s, "initiate_withdrawal", KeyWithdrawFailed, err)
		}

		body := cat.Text(lang, KeyWithdrawCode, code, formatAmount(s.Data.Amount), formatValidity(h.deps.Texts.WithdrawalCodeValidity))
		h.deps.notify(s.PhoneNumber, body)
		return End(body)

	default:
		return h.deps.resetToMain(s)
	}
}
