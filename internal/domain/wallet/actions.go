// Package wallet defines the ports the USSD engine uses to reach the financial
// backends and the notification channel. The business logic behind them lives
// in external canisters; this package only fixes the call boundary.
package wallet

import (
	"context"
	"errors"
	"fmt"
)

// Transaction is the subset of a ledger transaction the USSD menus render.
type Transaction struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Balance is the result of a balance check.
type Balance struct {
	Balance         int64        `json:"balance"`
	LastTransaction *Transaction `json:"lastTransaction,omitempty"`
}

// SendMoneyRequest carries the collected send-money inputs.
type SendMoneyRequest struct {
	SenderPhone    string `json:"senderPhone"`
	RecipientPhone string `json:"recipientPhone"`
	Amount         int64  `json:"amount"`
	PIN            string `json:"pin"`
}

// WithdrawalRequest carries the collected withdrawal inputs.
type WithdrawalRequest struct {
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
	PIN    string `json:"pin"`
}

// Actions is implemented by the canister bridge.
//
// A business failure (wrong PIN, insufficient balance, unknown user) is
// returned as a *Rejection; any other error is a transport failure.
type Actions interface {
	SendMoney(ctx context.Context, req SendMoneyRequest) (*Transaction, error)
	CheckBalance(ctx context.Context, phone, pin string) (*Balance, error)
	InitiateWithdrawal(ctx context.Context, req WithdrawalRequest) (string, error)
	Register(ctx context.Context, phone, pin string) error
}

// Notifier delivers a best-effort message to a phone. Implementations must not
// block the caller on delivery and must only log failures.
type Notifier interface {
	Notify(phone, message string)
}

// Rejection is the "Err" variant of an action result.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("rejected: %s", r.Reason)
}

// Reject builds a *Rejection
func Reject(reason string) error {
	return &Rejection{Reason: reason}
}

// AsRejection extracts the rejection reason from err, if any
func AsRejection(err error) (string, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason, true
	}
	return "", false
}

// ErrUnavailable is returned when no backend is configured.
var ErrUnavailable = errors.New("wallet backend unavailable")
