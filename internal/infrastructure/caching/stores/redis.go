package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/interfaces"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

// maxTxRetries bounds optimistic transaction retries when a watched key changes
const maxTxRetries = 3

// NewRedisClient opens a client and verifies the server answers
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisSessionsStore keeps sessions in redis so several gateway instances can share them.
// Keys carry a TTL of the inactivity window that is refreshed on every write.
type RedisSessionsStore struct {
	client      *redis.Client
	prefix      string
	timeout     time.Duration
	preferences interfaces.PreferenceStore
	logger      *logging.ChanneledLogger
	now         func() time.Time
}

var _ interfaces.SessionStore = (*RedisSessionsStore)(nil)

// NewRedisSessionsStore creates a redis-backed session store
func NewRedisSessionsStore(client *redis.Client, prefix string, timeout time.Duration, preferences interfaces.PreferenceStore, logger *logging.ChanneledLogger) *RedisSessionsStore {
	if logger != nil {
		logger.Session().Info("Initializing sessions store", "backend", "redis", "prefix", prefix, "timeout", timeout)
	}
	return &RedisSessionsStore{
		client:      client,
		prefix:      prefix,
		timeout:     timeout,
		preferences: preferences,
		logger:      logger,
		now:         time.Now,
	}
}

func (rs *RedisSessionsStore) key(sessionID string) string {
	return rs.prefix + ":session:" + sessionID
}

// GetOrCreate reads, refreshes or replaces the session inside one WATCH transaction
func (rs *RedisSessionsStore) GetOrCreate(ctx context.Context, sessionID, phoneNumber string) (*session.Session, error) {
	key := rs.key(sessionID)
	var result *session.Session

	txf := func(tx *redis.Tx) error {
		now := rs.now()
		current, err := readSession(ctx, tx, key)
		if err != nil {
			return err
		}
		if current == nil || current.IsExpired(now, rs.timeout) {
			current = session.NewSession(sessionID, phoneNumber, now)
			current.Language = seedLanguage(ctx, rs.preferences, current.PhoneNumber, rs.logger)
		} else {
			current.Touch(now)
		}
		raw, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, rs.timeout)
			return nil
		})
		if err == nil {
			result = current
		}
		return err
	}

	if err := rs.watch(ctx, txf, key); err != nil {
		return nil, fmt.Errorf("get_or_create %s: %w", logging.MaskSessionID(sessionID), err)
	}
	return result, nil
}

// Update applies mutate to a live session, failing with ErrSessionNotFound otherwise
func (rs *RedisSessionsStore) Update(ctx context.Context, sessionID string, mutate func(*session.Session)) error {
	key := rs.key(sessionID)

	txf := func(tx *redis.Tx) error {
		current, err := readSession(ctx, tx, key)
		if err != nil {
			return err
		}
		if current == nil || current.IsExpired(rs.now(), rs.timeout) {
			return interfaces.ErrSessionNotFound
		}
		mutate(current)
		current.SessionID = sessionID
		raw, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, rs.timeout)
			return nil
		})
		return err
	}

	if err := rs.watch(ctx, txf, key); err != nil {
		return fmt.Errorf("update %s: %w", logging.MaskSessionID(sessionID), err)
	}
	return nil
}

// Delete removes a session
func (rs *RedisSessionsStore) Delete(ctx context.Context, sessionID string) error {
	if err := rs.client.Del(ctx, rs.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", logging.MaskSessionID(sessionID), err)
	}
	return nil
}

// SweepExpired removes sessions whose payload is expired but whose key TTL has not yet fired.
// Each removal is a watched check-and-delete.
func (rs *RedisSessionsStore) SweepExpired(ctx context.Context) (int, error) {
	removed := 0
	err := rs.scan(ctx, func(key string) error {
		return rs.watch(ctx, func(tx *redis.Tx) error {
			current, err := readSession(ctx, tx, key)
			if err != nil || current == nil || !current.IsExpired(rs.now(), rs.timeout) {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err == nil {
				removed++
			}
			return err
		}, key)
	})
	return removed, err
}

// Count returns the number of session keys under the prefix
func (rs *RedisSessionsStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := rs.scan(ctx, func(string) error {
		count++
		return nil
	})
	return count, err
}

func (rs *RedisSessionsStore) scan(ctx context.Context, fn func(key string) error) error {
	var cursor uint64
	pattern := rs.prefix + ":session:*"
	for {
		keys, next, err := rs.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan sessions: %w", err)
		}
		for _, key := range keys {
			if err := fn(key); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (rs *RedisSessionsStore) watch(ctx context.Context, fn func(*redis.Tx) error, key string) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = rs.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if rs.logger != nil {
			rs.logger.Session().Debug("Redis transaction conflict, retrying", "attempt", attempt+1)
		}
	}
	return err
}

func readSession(ctx context.Context, tx *redis.Tx, key string) (*session.Session, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

// RedisPreferencesStore keeps language preferences in a redis hash without expiry
type RedisPreferencesStore struct {
	client *redis.Client
	key    string
	logger *logging.ChanneledLogger
}

var _ interfaces.PreferenceStore = (*RedisPreferencesStore)(nil)

// NewRedisPreferencesStore creates a redis-backed preference store
func NewRedisPreferencesStore(client *redis.Client, prefix string, logger *logging.ChanneledLogger) *RedisPreferencesStore {
	return &RedisPreferencesStore{client: client, key: prefix + ":language", logger: logger}
}

// GetLanguage returns the stored language for phoneNumber
func (rp *RedisPreferencesStore) GetLanguage(ctx context.Context, phoneNumber string) (session.Language, bool, error) {
	phone := session.NormalizePhoneNumber(phoneNumber)
	value, err := rp.client.HGet(ctx, rp.key, phone).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read language preference: %w", err)
	}
	lang := session.Language(value)
	if !lang.Valid() {
		return "", false, nil
	}
	return lang, true, nil
}

// SetLanguage overwrites the language for phoneNumber
func (rp *RedisPreferencesStore) SetLanguage(ctx context.Context, phoneNumber string, lang session.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}
	phone := session.NormalizePhoneNumber(phoneNumber)
	if err := rp.client.HSet(ctx, rp.key, phone, string(lang)).Err(); err != nil {
		return fmt.Errorf("failed to store language preference: %w", err)
	}
	if rp.logger != nil {
		rp.logger.Session().Debug("Cache operation", "operation", "set", "type", "language", "backend", "redis", "phone", logging.MaskPhone(phone))
	}
	return nil
}
