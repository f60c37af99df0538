package menus

import (
	"context"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

// Send money steps
const (
	sendStepRecipient = 1
	sendStepAmount    = 2
	sendStepPIN       = 3
)

// SendMoneyHandler collects recipient, amount and PIN, then transfers
type SendMoneyHandler struct {
	deps *Deps
}

func (h *SendMoneyHandler) Menu() session.Menu { return session.MenuSendMoney }

func (h *SendMoneyHandler) Handle(ctx context.Context, input string, s *session.Session) Response {
	cat, lang := h.deps.Catalog, s.Lang()
	value := LastToken(input)

	switch s.Step {
	case sendStepRecipient:
		recipient := session.NormalizePhoneNumber(value)
		if !ValidRecipient(recipient) {
			return Continue(cat.Text(lang, KeyInvalidPhone))
		}
		s.Data.Recipient = recipient
		s.Step = sendStepAmount
		return Continue(cat.Text(lang, KeyEnterAmount))

	case sendStepAmount:
		amount, ok := ParseAmount(value)
		if !ok {
			return Continue(cat.Text(lang, KeyInvalidAmount))
		}
		s.Data.Amount = amount
		s.Step = sendStepPIN
		return Continue(cat.Text(lang, KeyEnterPIN))

	case sendStepPIN:
		return h.transfer(ctx, value, s)

	default:
		return h.deps.resetToMain(s)
	}
}

func (h *SendMoneyHandler) transfer(ctx context.Context, pin string, s *session.Session) Response {
	cat, lang := h.deps.Catalog, s.Lang()
	recipient, amount := s.Data.Recipient, s.Data.Amount

	h.deps.Logger.WithSession(logging.ChannelUSSD, s.SessionID, s.PhoneNumber).Info("Submitting transfer",
		"recipient", logging.MaskPhone(recipient), "amount", amount)

	tx, err := h.deps.Actions.SendMoney(ctx, wallet.SendMoneyRequest{
		SenderPhone:    s.PhoneNumber,
		RecipientPhone: recipient,
		Amount:         amount,
		PIN:            pin,
	})
	if err != nil {
		return h.deps.actionFailure(s, "send_money", KeySendFailed, err)
	}

	amountText := formatAmount(amount)
	h.deps.notify(s.PhoneNumber, cat.Text(lang, KeyNotifySent, amountText, recipient))
	h.deps.notify(recipient, cat.Text(session.DefaultLanguage, KeyNotifyReceived, amountText, s.PhoneNumber))

	return End(cat.Text(lang, KeySendSuccess, amountText, recipient, tx.ID))
}
