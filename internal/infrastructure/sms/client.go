// Package sms provides the Africa's Talking client used for subscriber notifications.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/afritokeni/ussd-gateway/internal/infrastructure/messaging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

// SandboxUsername is the Africa's Talking sandbox account name
const SandboxUsername = "sandbox"

// Config holds the provider credentials
type Config struct {
	Username  string
	APIKey    string
	ShortCode string
	Endpoint  string
	Timeout   time.Duration
}

// Client posts bulk-SMS requests to Africa's Talking
type Client struct {
	config Config
	http   *http.Client
	logger *logging.ChanneledLogger
}

var _ messaging.Sender = (*Client)(nil)

type sendResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Status     string `json:"status"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// NewClient creates an SMS client
func NewClient(config Config, logger *logging.ChanneledLogger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	c := &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
	if c.DemoMode() {
		logger.Notify().Warn("SMS client running in demo mode, messages will only be logged", "username", config.Username)
	}
	return c
}

// DemoMode reports whether messages are logged instead of sent
func (c *Client) DemoMode() bool {
	return c.config.Username == SandboxUsername || c.config.APIKey == ""
}

// Send delivers message to phone. Outcomes a resend cannot change are wrapped
// with backoff.Permanent so the notification queue stops retrying them.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	to := internationalize(phone)
	if c.DemoMode() {
		c.logger.Notify().Info("Demo SMS", "to", logging.MaskPhone(to), "length", len(message))
		return nil
	}

	form := url.Values{}
	form.Set("username", c.config.Username)
	form.Set("to", to)
	form.Set("message", message)
	if c.config.ShortCode != "" {
		form.Set("from", c.config.ShortCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusMultipleChoices {
		err := fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if retryableStatus(resp.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to decode sms response: %w", err)
	}
	recipients := parsed.SMSMessageData.Recipients
	if len(recipients) == 0 {
		return fmt.Errorf("sms not accepted: %s", parsed.SMSMessageData.Message)
	}
	// 100 Processed, 101 Sent, 102 Queued
	if code := recipients[0].StatusCode; code < 100 || code > 102 {
		return backoff.Permanent(fmt.Errorf("sms rejected for recipient: %s", recipients[0].Status))
	}

	c.logger.Notify().Debug("SMS accepted", "to", logging.MaskPhone(to), "messageId", recipients[0].MessageID)
	return nil
}

func internationalize(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}

// retryableStatus reports whether a failed provider reply may succeed on resend.
// Other client errors (bad key, bad number) are permanent.
func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError ||
		code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout
}
