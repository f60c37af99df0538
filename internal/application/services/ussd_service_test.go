package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afritokeni/ussd-gateway/internal/application/menus"
	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/stores"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

type stubActions struct {
	mu        sync.Mutex
	tx        *wallet.Transaction
	balance   *wallet.Balance
	code      string
	err       error
	panicWith string
	calls     int
}

func (a *stubActions) SendMoney(ctx context.Context, req wallet.SendMoneyRequest) (*wallet.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.panicWith != "" {
		panic(a.panicWith)
	}
	return a.tx, a.err
}

func (a *stubActions) CheckBalance(ctx context.Context, phone, pin string) (*wallet.Balance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.balance, a.err
}

func (a *stubActions) InitiateWithdrawal(ctx context.Context, req wallet.WithdrawalRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.code, a.err
}

func (a *stubActions) Register(ctx context.Context, phone, pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify(phone, message string) {
	n.mu.Lock()
	n.count++
	n.mu.Unlock()
}

type harness struct {
	service  *USSDService
	store    *stores.SessionsStore
	prefs    *stores.PreferencesStore
	actions  *stubActions
	notifier *countingNotifier
	tracker  *performance.Tracker
	now      time.Time
}

func newHarness(t *testing.T, limiter *security.PhoneLimiter) *harness {
	t.Helper()
	h := &harness{
		actions:  &stubActions{},
		notifier: &countingNotifier{},
		tracker:  performance.NewTracker(),
		now:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	logger := logging.NewDiscardLogger()
	h.prefs = stores.NewPreferencesStore(logger)
	h.store = stores.NewSessionsStore(3*time.Minute, h.prefs, logger).WithClock(func() time.Time { return h.now })

	catalog := menus.NewCatalog()
	registry, err := menus.NewDefaultRegistry(&menus.Deps{
		Actions:     h.actions,
		Notifier:    h.notifier,
		Preferences: h.prefs,
		Catalog:     catalog,
		Texts:       menus.Texts{SupportPhone: "+256700000000", SupportSMSCode: "6969", WithdrawalCodeValidity: 15 * time.Minute},
		Logger:      logger,
	})
	require.NoError(t, err)

	h.service = NewUSSDService(h.store, registry, catalog, limiter, logger, h.tracker)
	h.service.now = func() time.Time { return h.now }
	return h
}

func (h *harness) dial(sessionID, text string) string {
	return h.service.Dispatch(context.Background(), USSDRequest{
		SessionID:   sessionID,
		ServiceCode: "*384*22948#",
		PhoneNumber: "+256700111222",
		Text:        text,
	})
}

func (h *harness) stored(t *testing.T, sessionID string) *session.Session {
	t.Helper()
	s, err := h.store.GetOrCreate(context.Background(), sessionID, "256700111222")
	require.NoError(t, err)
	return s
}

func TestCheckBalanceScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.actions.balance = &wallet.Balance{Balance: 50000}

	assert.Contains(t, h.dial("S1", ""), "CON Welcome to MoneyTransfer")
	assert.Equal(t, "CON Check Balance\nEnter your PIN:", h.dial("S1", "2"))

	reply := h.dial("S1", "2*1234")
	assert.True(t, menus.IsTerminal(reply))
	assert.Contains(t, reply, "UGX 50000")

	count, _ := h.store.Count(context.Background())
	assert.Zero(t, count)
}

func TestInvalidRecipientScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.dial("S1", "")
	assert.Equal(t, "CON Send Money\nEnter recipient phone number:", h.dial("S1", "1"))

	reply := h.dial("S1", "1*123")
	assert.Contains(t, reply, "CON Invalid phone number format")

	s := h.stored(t, "S1")
	assert.Equal(t, session.MenuSendMoney, s.CurrentMenu)
	assert.Equal(t, 1, s.Step)
}

func TestSendMoneyScenarioNotifiesTwice(t *testing.T) {
	h := newHarness(t, nil)
	h.actions.tx = &wallet.Transaction{ID: "tx-99"}

	h.dial("S1", "")
	h.dial("S1", "1")
	h.dial("S1", "1*256700333444")
	h.dial("S1", "1*256700333444*2500")
	reply := h.dial("S1", "1*256700333444*2500*1234")

	assert.True(t, menus.IsTerminal(reply))
	assert.Contains(t, reply, "tx-99")
	assert.Equal(t, 2, h.notifier.count)
}

func TestWithdrawRejectedScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.actions.err = wallet.Reject("Insufficient balance")

	h.dial("S1", "")
	h.dial("S1", "3")
	h.dial("S1", "3*10000")
	assert.Equal(t, "END Withdrawal failed:\nInsufficient balance", h.dial("S1", "3*10000*9999"))
	assert.Zero(t, h.notifier.count)
}

func TestRegisterMismatchScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.dial("S1", "")
	h.dial("S1", "5")
	h.dial("S1", "5*1234")

	reply := h.dial("S1", "5*1234*4321")
	assert.Contains(t, reply, "CON PINs do not match")
	s := h.stored(t, "S1")
	assert.Equal(t, session.MenuRegister, s.CurrentMenu)
	assert.Equal(t, 1, s.Step)
}

func TestTerminalResponseStartsFreshConversation(t *testing.T) {
	h := newHarness(t, nil)
	h.dial("S1", "")
	assert.True(t, menus.IsTerminal(h.dial("S1", "4")))

	reply := h.dial("S1", "")
	assert.Contains(t, reply, "CON Welcome to MoneyTransfer")
	s := h.stored(t, "S1")
	assert.Equal(t, session.MenuMain, s.CurrentMenu)
	assert.Equal(t, 0, s.Step)
}

func TestExpiredSessionStartsOver(t *testing.T) {
	h := newHarness(t, nil)
	h.dial("S1", "")
	h.dial("S1", "3")

	h.now = h.now.Add(4 * time.Minute)
	reply := h.dial("S1", "")
	assert.Contains(t, reply, "CON Welcome to MoneyTransfer")
}

func TestLanguagePreferencePersistsAcrossSessions(t *testing.T) {
	h := newHarness(t, nil)

	h.dial("S1", "")
	assert.Equal(t, "CON Select language:\n1. English\n2. Luganda\n3. Kiswahili", h.dial("S1", "6"))
	assert.Equal(t, "CON Olulimi lutegekeddwa ku Luganda\n\nNyiga 0 okudda ku menu enkulu", h.dial("S1", "6*2"))

	s, err := h.store.GetOrCreate(context.Background(), "S2", "256700111222")
	require.NoError(t, err)
	assert.Equal(t, session.LanguageLuganda, s.Language)
}

// Any history starting with "6*N" keeps selecting N, so a later 0 does not go back.
func TestChainedLanguageHistoryKeepsFirstChoice(t *testing.T) {
	h := newHarness(t, nil)
	luganda := "CON Olulimi lutegekeddwa ku Luganda\n\nNyiga 0 okudda ku menu enkulu"

	h.dial("S1", "")
	h.dial("S1", "6")
	for _, text := range []string{"6*2", "6*2*0", "6*2*0*0"} {
		assert.Equal(t, luganda, h.dial("S1", text), text)
	}

	s := h.stored(t, "S1")
	assert.Equal(t, session.MenuLanguageSelection, s.CurrentMenu)
	assert.Equal(t, session.LanguageLuganda, s.Language)
}

func TestChainedLanguageSelectionInOneRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, "CON Lugha imewekwa kwa Kiswahili\n\nBonyeza 0 kurudi kwa menyu kuu", h.dial("S1", "6*3"))
	assert.Equal(t, session.LanguageSwahili, h.stored(t, "S1").Language)
}

func TestLanguageBackRendersMainMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.dial("S1", "")
	h.dial("S1", "9")
	h.dial("S1", "9*6")

	reply := h.dial("S1", "9*6*0")
	assert.Contains(t, reply, "CON Welcome to MoneyTransfer")
	s := h.stored(t, "S1")
	assert.Equal(t, session.MenuMain, s.CurrentMenu)
	assert.Equal(t, 0, s.Step)
}

func TestHandlerPanicBecomesTerminalReply(t *testing.T) {
	h := newHarness(t, nil)
	h.actions.panicWith = "nil map"

	h.dial("S1", "")
	h.dial("S1", "1")
	h.dial("S1", "1*256700333444")
	h.dial("S1", "1*256700333444*100")
	assert.Equal(t, "END Service temporarily unavailable. Please try again.", h.dial("S1", "1*256700333444*100*1234"))

	count, _ := h.store.Count(context.Background())
	assert.Zero(t, count)
}

func TestMissingFields(t *testing.T) {
	h := newHarness(t, nil)
	reply := h.service.Dispatch(context.Background(), USSDRequest{SessionID: "", PhoneNumber: "256700111222"})
	assert.Equal(t, "END Invalid request.", reply)
	reply = h.service.Dispatch(context.Background(), USSDRequest{SessionID: "S1", PhoneNumber: " "})
	assert.Equal(t, "END Invalid request.", reply)
}

func TestRateLimitedWithoutTouchingSession(t *testing.T) {
	h := newHarness(t, security.NewPhoneLimiter(10, 2, time.Minute))

	h.dial("S1", "")
	h.dial("S1", "3")
	assert.Equal(t, "END Too many requests. Please try again later.", h.dial("S1", "3*500"))

	s := h.stored(t, "S1")
	assert.Equal(t, session.MenuWithdraw, s.CurrentMenu)
	assert.Equal(t, 1, s.Step)
	assert.Zero(t, h.actions.calls)
}

func TestSweepTwiceRemovesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.dial("S1", "")
	h.dial("S2", "")
	h.now = h.now.Add(5 * time.Minute)

	removed, err := h.store.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	removed, err = h.store.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
