package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

const testSecret = "bridge-secret"

func newBridge(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body map[string]any)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "Bearer "))
		claims, err := security.ValidateServiceToken(strings.TrimPrefix(auth, "Bearer "), testSecret)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("X-Phone", claims.Phone)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r, body)
	}))
	t.Cleanup(srv.Close)
	signer := security.NewServiceTokenSigner(testSecret, time.Minute)
	return NewClient(srv.URL, signer, time.Second, logging.NewDiscardLogger(), performance.NewTracker())
}

func TestSendMoneyOK(t *testing.T) {
	client := newBridge(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		assert.Equal(t, pathSendMoney, r.URL.Path)
		assert.Equal(t, "256700111222", body["senderPhone"])
		assert.Equal(t, "256700333444", body["recipientPhone"])
		assert.Equal(t, float64(5000), body["amount"])
		_, _ = w.Write([]byte(`{"ok":{"id":"tx-42","from":"256700111222","to":"256700333444","amount":5000}}`))
	})

	tx, err := client.SendMoney(context.Background(), domain.SendMoneyRequest{
		SenderPhone: "256700111222", RecipientPhone: "256700333444", Amount: 5000, PIN: "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-42", tx.ID)
	assert.Equal(t, int64(5000), tx.Amount)
}

func TestErrVariantIsRejection(t *testing.T) {
	client := newBridge(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"err":"Insufficient balance"}`))
	})

	_, err := client.InitiateWithdrawal(context.Background(), domain.WithdrawalRequest{Phone: "256700111222", Amount: 10000, PIN: "9999"})
	reason, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, "Insufficient balance", reason)
}

func TestCheckBalanceWithLastTransaction(t *testing.T) {
	client := newBridge(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		assert.Equal(t, pathBalance, r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":{"balance":50000,"lastTransaction":{"id":"tx-1","from":"256700111222","to":"256700333444","amount":700}}}`))
	})

	balance, err := client.CheckBalance(context.Background(), "256700111222", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), balance.Balance)
	require.NotNil(t, balance.LastTransaction)
	assert.Equal(t, int64(700), balance.LastTransaction.Amount)
}

func TestWithdrawalAndRegister(t *testing.T) {
	client := newBridge(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		switch r.URL.Path {
		case pathWithdrawals:
			_, _ = w.Write([]byte(`{"ok":{"code":"WD-123456"}}`))
		case pathRegister:
			assert.Equal(t, "4321", body["pin"])
			_, _ = w.Write([]byte(`{"ok":null}`))
		}
	})

	code, err := client.InitiateWithdrawal(context.Background(), domain.WithdrawalRequest{Phone: "256700111222", Amount: 100, PIN: "1111"})
	require.NoError(t, err)
	assert.Equal(t, "WD-123456", code)

	assert.NoError(t, client.Register(context.Background(), "256700111222", "4321"))
}

func TestTransportFailureIsNotRejection(t *testing.T) {
	client := newBridge(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	})

	err := client.Register(context.Background(), "256700111222", "1234")
	require.Error(t, err)
	_, rejected := domain.AsRejection(err)
	assert.False(t, rejected)
}

func TestUnconfiguredClientIsUnavailable(t *testing.T) {
	client := NewClient("", nil, 0, logging.NewDiscardLogger(), nil)
	_, err := client.CheckBalance(context.Background(), "256700111222", "1234")
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
}
