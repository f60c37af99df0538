// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/afritokeni/ussd-gateway/internal/application/menus"
	"github.com/afritokeni/ussd-gateway/internal/application/services"
	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/cleanup"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/interfaces"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/stores"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/messaging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/sms"
	walletclient "github.com/afritokeni/ussd-gateway/internal/infrastructure/wallet"
	"github.com/afritokeni/ussd-gateway/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Observability
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker

	// Storage
	Sessions    interfaces.SessionStore
	Preferences interfaces.PreferenceStore
	Redis       *redis.Client

	// Outbound
	Notifications *messaging.NotificationQueue
	Wallet        wallet.Actions

	// Engine
	Catalog     *menus.Catalog
	Limiter     *security.PhoneLimiter
	USSDService *services.USSDService

	// Background
	CleanupWorker *cleanup.Worker

	// Inbound service authentication
	ServiceSecret string
}

// NewContainer creates the logger and wires every singleton from pkg/config
func NewContainer(ctx context.Context) (*Container, error) {
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    config.LogToFile,
		OutputToConsole: true,
		LogDirectory:    config.LogDir,
		JSONFormat:      config.LogJSON,
		DefaultLevel:    logging.ParseLevel(config.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c := &Container{
		Logger:        logger,
		PerfTracker:   performance.NewTracker(),
		Catalog:       menus.NewCatalog(),
		ServiceSecret: config.ServiceAPISecret,
	}

	start := time.Now()
	if err := c.initStores(ctx); err != nil {
		logger.LogStartupPhase("stores", time.Since(start), false, map[string]any{"backend": config.StoreBackend, "error": err.Error()})
		return nil, err
	}
	logger.LogStartupPhase("stores", time.Since(start), true, map[string]any{"backend": config.StoreBackend})

	c.PerfTracker.RegisterGaugeFunc("sessions_active", "Number of live USSD sessions.", func() float64 {
		n, err := c.Sessions.Count(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	c.Limiter = security.NewPhoneLimiter(config.RateLimitPerMinute, config.RateLimitBurst, 2*config.SessionTimeout)

	smsClient := sms.NewClient(sms.Config{
		Username:  config.ATUsername,
		APIKey:    config.ATAPIKey,
		ShortCode: config.ATShortCode,
		Endpoint:  config.ATSMSEndpoint,
		Timeout:   10 * time.Second,
	}, logger)
	c.Notifications = messaging.NewNotificationQueue(smsClient, messaging.QueueConfig{
		Workers:    config.NotifyWorkers,
		QueueSize:  config.NotifyQueueSize,
		MaxRetries: config.NotifyMaxRetries,
	}, logger, c.PerfTracker)

	signer := security.NewServiceTokenSigner(config.WalletAPISecret, time.Minute)
	c.Wallet = walletclient.NewClient(config.WalletAPIURL, signer, config.WalletAPITimeout, logger, c.PerfTracker)
	if config.WalletAPIURL == "" {
		logger.Startup().Warn("WALLET_API_URL not set, financial menus will report the service as unavailable")
	}

	registry, err := menus.NewDefaultRegistry(&menus.Deps{
		Actions:     c.Wallet,
		Notifier:    c.Notifications,
		Preferences: c.Preferences,
		Catalog:     c.Catalog,
		Texts: menus.Texts{
			SupportPhone:           config.SupportPhone,
			SupportSMSCode:         config.SupportSMSCode,
			WithdrawalCodeValidity: config.WithdrawalCodeValidity,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build menu registry: %w", err)
	}

	c.USSDService = services.NewUSSDService(c.Sessions, registry, c.Catalog, c.Limiter, logger, c.PerfTracker)
	c.CleanupWorker = cleanup.NewWorker(c.Sessions, cleanup.NewConfig(), logger, c.PerfTracker, c.Limiter)

	return c, nil
}

func (c *Container) initStores(ctx context.Context) error {
	switch config.StoreBackend {
	case config.StoreBackendRedis:
		client, err := stores.NewRedisClient(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return err
		}
		c.Redis = client
		c.Preferences = stores.NewRedisPreferencesStore(client, config.RedisKeyPrefix, c.Logger)
		c.Sessions = stores.NewRedisSessionsStore(client, config.RedisKeyPrefix, config.SessionTimeout, c.Preferences, c.Logger)
	case config.StoreBackendMemory, "":
		c.Preferences = stores.NewPreferencesStore(c.Logger)
		c.Sessions = stores.NewSessionsStore(config.SessionTimeout, c.Preferences, c.Logger)
	default:
		return fmt.Errorf("unknown session store backend %q", config.StoreBackend)
	}
	return nil
}

// Close drains the notification queue and releases connections
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	if c.Notifications != nil {
		if err := c.Notifications.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("notification queue: %w", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("redis: %w", err)
		}
	}
	return firstErr
}
