// Package wallet implements the canister bridge client behind wallet.Actions.
//
// The bridge exposes each canister method as a JSON POST. Responses follow the
// Candid Result convention: {"ok": <payload>} or {"err": "<reason>"}.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

const (
	pathSendMoney   = "/wallet/send"
	pathBalance     = "/wallet/balance"
	pathWithdrawals = "/wallet/withdrawals"
	pathRegister    = "/users/register"
)

// Client calls the canister bridge over HTTP
type Client struct {
	baseURL string
	signer  *security.ServiceTokenSigner
	http    *http.Client
	logger  *logging.ChanneledLogger
	tracker *performance.Tracker
}

var _ domain.Actions = (*Client)(nil)

type result struct {
	OK  json.RawMessage `json:"ok"`
	Err *string         `json:"err"`
}

// NewClient creates a bridge client. An empty baseURL makes every call fail with ErrUnavailable.
func NewClient(baseURL string, signer *security.ServiceTokenSigner, timeout time.Duration, logger *logging.ChanneledLogger, tracker *performance.Tracker) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		logger.Wallet().Warn("Wallet bridge URL not configured, financial actions are unavailable")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		tracker: tracker,
	}
}

// SendMoney transfers amount from the sender to the recipient
func (c *Client) SendMoney(ctx context.Context, req domain.SendMoneyRequest) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := c.call(ctx, "send_money", pathSendMoney, req.SenderPhone, req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CheckBalance returns the balance and the most recent transaction
func (c *Client) CheckBalance(ctx context.Context, phone, pin string) (*domain.Balance, error) {
	var balance domain.Balance
	payload := map[string]string{"phone": phone, "pin": pin}
	if err := c.call(ctx, "check_balance", pathBalance, phone, payload, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// InitiateWithdrawal reserves amount and returns the code an agent redeems
func (c *Client) InitiateWithdrawal(ctx context.Context, req domain.WithdrawalRequest) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	if err := c.call(ctx, "initiate_withdrawal", pathWithdrawals, req.Phone, req, &out); err != nil {
		return "", err
	}
	if out.Code == "" {
		return "", errors.New("bridge returned an empty withdrawal code")
	}
	return out.Code, nil
}

// Register creates a user with the given PIN
func (c *Client) Register(ctx context.Context, phone, pin string) error {
	payload := map[string]string{"phone": phone, "pin": pin}
	return c.call(ctx, "register", pathRegister, phone, payload, nil)
}

func (c *Client) call(ctx context.Context, operation, path, phone string, payload, out any) (err error) {
	if c.baseURL == "" {
		return domain.ErrUnavailable
	}

	if c.tracker != nil {
		marker := c.tracker.StartOperation("wallet:" + operation)
		defer func() {
			if _, rejected := domain.AsRejection(err); err != nil && !rejected {
				marker.SetError(err)
			}
			marker.Complete()
		}()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.signer != nil {
		token, err := c.signer.Sign(phone)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", operation, err)
	}
	c.logger.Wallet().Debug("Bridge call completed", "operation", operation, "status", resp.StatusCode, "duration", time.Since(start))

	var res result
	if jsonErr := json.Unmarshal(raw, &res); jsonErr != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("%s returned %d", operation, resp.StatusCode)
		}
		return fmt.Errorf("failed to decode %s response: %w", operation, jsonErr)
	}
	if res.Err != nil {
		return domain.Reject(*res.Err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s returned %d", operation, resp.StatusCode)
	}
	if res.OK == nil {
		return fmt.Errorf("%s response has neither ok nor err", operation)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.OK, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", operation, err)
	}
	return nil
}
