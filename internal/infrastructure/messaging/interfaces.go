// Package messaging defines the outbound notification contracts.
package messaging

import "context"

// Sender delivers one text message to a phone number. An error wrapped with
// backoff.Permanent is not retried.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}
