package security

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PhoneLimiter applies a token bucket per phone number.
// A nil *PhoneLimiter allows everything.
type PhoneLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	byPhone map[string]*limiterEntry
	idleTTL time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPhoneLimiter allows perMinute requests per phone with the given burst.
// It returns nil when perMinute is not positive.
func NewPhoneLimiter(perMinute, burst int, idleTTL time.Duration) *PhoneLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perMinute
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &PhoneLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		byPhone: make(map[string]*limiterEntry),
		idleTTL: idleTTL,
	}
}

// Allow reports whether one request from phone may proceed at now
func (l *PhoneLimiter) Allow(phone string, now time.Time) bool {
	if l == nil {
		return true
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byPhone[phone]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byPhone[phone] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// EvictIdle drops entries not seen since idleTTL and returns how many were removed
func (l *PhoneLimiter) EvictIdle(now time.Time) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.idleTTL)
	removed := 0
	for phone, e := range l.byPhone {
		if e.lastSeen.Before(cutoff) {
			delete(l.byPhone, phone)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked phones
func (l *PhoneLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byPhone)
}
