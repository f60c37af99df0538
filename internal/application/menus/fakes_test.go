package menus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/stores"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

type fakeActions struct {
	sendResult     *wallet.Transaction
	balanceResult  *wallet.Balance
	withdrawalCode string
	err            error
	panicMessage   string

	sendRequests     []wallet.SendMoneyRequest
	balancePINs      []string
	withdrawRequests []wallet.WithdrawalRequest
	registeredPINs   []string
}

func (f *fakeActions) SendMoney(ctx context.Context, req wallet.SendMoneyRequest) (*wallet.Transaction, error) {
	if f.panicMessage != "" {
		panic(f.panicMessage)
	}
	f.sendRequests = append(f.sendRequests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.sendResult, nil
}

func (f *fakeActions) CheckBalance(ctx context.Context, phone, pin string) (*wallet.Balance, error) {
	f.balancePINs = append(f.balancePINs, pin)
	if f.err != nil {
		return nil, f.err
	}
	return f.balanceResult, nil
}

func (f *fakeActions) InitiateWithdrawal(ctx context.Context, req wallet.WithdrawalRequest) (string, error) {
	f.withdrawRequests = append(f.withdrawRequests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.withdrawalCode, nil
}

func (f *fakeActions) Register(ctx context.Context, phone, pin string) error {
	f.registeredPINs = append(f.registeredPINs, pin)
	return f.err
}

type notification struct {
	phone   string
	message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) Notify(phone, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{phone: phone, message: message})
}

type fixture struct {
	actions  *fakeActions
	notifier *fakeNotifier
	prefs    *stores.PreferencesStore
	deps     *Deps
	registry *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		actions:  &fakeActions{},
		notifier: &fakeNotifier{},
		prefs:    stores.NewPreferencesStore(nil),
	}
	f.deps = &Deps{
		Actions:     f.actions,
		Notifier:    f.notifier,
		Preferences: f.prefs,
		Catalog:     NewCatalog(),
		Texts: Texts{
			SupportPhone:           "+256700000000",
			SupportSMSCode:         "6969",
			WithdrawalCodeValidity: 15 * time.Minute,
		},
		Logger: logging.NewDiscardLogger(),
	}
	registry, err := NewDefaultRegistry(f.deps)
	require.NoError(t, err)
	f.registry = registry
	return f
}

func (f *fixture) handle(s *session.Session, input string) Response {
	return f.registry.Lookup(s.CurrentMenu).Handle(context.Background(), input, s)
}

func newSession() *session.Session {
	return session.NewSession("sess-1", "256700111222", time.Now())
}
