package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

// Notification outcomes recorded by the tracker
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

type job struct {
	id      string
	phone   string
	message string
}

// QueueConfig sizes the executor
type QueueConfig struct {
	Workers      int
	QueueSize    int
	MaxRetries   int
	InitialDelay time.Duration
	SendTimeout  time.Duration
}

// NotificationQueue hands messages to a fixed worker pool. Notify never blocks:
// when the buffer is full the message is dropped and logged.
type NotificationQueue struct {
	sender  Sender
	config  QueueConfig
	logger  *logging.ChanneledLogger
	tracker *performance.Tracker

	jobs   chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ wallet.Notifier = (*NotificationQueue)(nil)

// NewNotificationQueue starts the workers. tracker may be nil.
func NewNotificationQueue(sender Sender, config QueueConfig, logger *logging.ChanneledLogger, tracker *performance.Tracker) *NotificationQueue {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 500 * time.Millisecond
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &NotificationQueue{
		sender:  sender,
		config:  config,
		logger:  logger,
		tracker: tracker,
		jobs:    make(chan job, config.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	logger.Notify().Info("Notification queue started", "workers", config.Workers, "queueSize", config.QueueSize)
	return q
}

// Notify enqueues a message for best-effort delivery
func (q *NotificationQueue) Notify(phone, message string) {
	j := job{id: security.GenerateULID(), phone: phone, message: message}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.drop(j, "queue closed")
		return
	}
	select {
	case q.jobs <- j:
		q.logger.Notify().Debug("Notification queued", "jobId", j.id, "phone", logging.MaskPhone(phone))
	default:
		q.drop(j, "queue full")
	}
}

func (q *NotificationQueue) drop(j job, reason string) {
	q.logger.Notify().Warn("Notification dropped", "jobId", j.id, "phone", logging.MaskPhone(j.phone), "reason", reason)
	q.record(StatusDropped)
}

func (q *NotificationQueue) worker(n int) {
	defer q.wg.Done()
	for j := range q.jobs {
		q.deliver(j)
	}
	q.logger.Notify().Debug("Notification worker exiting", "worker", n)
}

func (q *NotificationQueue) deliver(j job) {
	var marker *performance.Marker
	if q.tracker != nil {
		marker = q.tracker.StartOperation("notify:send")
		defer marker.Complete()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = q.config.InitialDelay
	retrying := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(q.config.MaxRetries)), q.ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		ctx, cancel := context.WithTimeout(q.ctx, q.config.SendTimeout)
		defer cancel()
		return q.sender.Send(ctx, j.phone, j.message)
	}, retrying)

	if err != nil {
		if marker != nil {
			marker.SetError(err)
		}
		q.logger.LogError(logging.ChannelNotify, "send_notification", err, map[string]any{
			"jobId":    j.id,
			"phone":    logging.MaskPhone(j.phone),
			"attempts": attempts,
		})
		q.record(StatusFailed)
		return
	}
	q.logger.Notify().Info("Notification sent", "jobId", j.id, "phone", logging.MaskPhone(j.phone), "attempts", attempts)
	q.record(StatusSent)
}

func (q *NotificationQueue) record(status string) {
	if q.tracker != nil {
		q.tracker.RecordNotification(status)
	}
}

// Pending returns the number of queued, not yet picked up, messages
func (q *NotificationQueue) Pending() int {
	return len(q.jobs)
}

// Shutdown stops accepting messages and waits for queued ones to drain.
// When ctx expires first, in-flight retries are abandoned.
func (q *NotificationQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}
