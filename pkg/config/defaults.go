// Package config provides centralized default values for the USSD gateway
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile applies .env values without overriding variables already set in the environment.
func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Failed to load .env file: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, redact(key, val), redact(key, defaultValue))
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	log.Printf("Config override: %s=%v", key, out)
	return out
}

// redact hides secrets in override log lines.
func redact(key, value string) string {
	upper := strings.ToUpper(key)
	if value != "" && (strings.Contains(upper, "SECRET") || strings.Contains(upper, "KEY") || strings.Contains(upper, "PASSWORD")) {
		return "****"
	}
	return value
}

const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

var (
	// Server Configuration
	Port               string
	GinMode            string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSAllowOrigins   []string

	// Session Configuration
	SessionTimeout time.Duration
	SweepInterval  time.Duration
	SweepVerbose   bool
	StoreBackend   string

	// Redis
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// Rate Limiting
	RateLimitPerMinute int
	RateLimitBurst     int

	// Wallet Bridge
	WalletAPIURL     string
	WalletAPISecret  string
	WalletAPITimeout time.Duration

	// Inbound service calls
	ServiceAPISecret string

	// SMS (Africa's Talking)
	ATUsername    string
	ATAPIKey      string
	ATShortCode   string
	ATSMSEndpoint string

	// Notifications
	NotifyWorkers    int
	NotifyQueueSize  int
	NotifyMaxRetries int

	// Texts
	WithdrawalCodeValidity time.Duration
	SupportPhone           string
	SupportSMSCode         string

	// Logging
	LogLevel  string
	LogJSON   bool
	LogToFile bool
	LogDir    string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	GinMode = getEnvString("GIN_MODE", "release")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSAllowOrigins = getEnvList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"})

	// Session Configuration
	SessionTimeout = getEnvDuration("USSD_SESSION_TIMEOUT", 3*time.Minute)
	SweepInterval = getEnvDuration("USSD_SWEEP_INTERVAL", time.Minute)
	SweepVerbose = getEnvBool("USSD_SWEEP_VERBOSE", false)
	StoreBackend = getEnvString("USSD_STORE_BACKEND", StoreBackendMemory)

	// Redis
	RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	RedisPassword = getEnvString("REDIS_PASSWORD", "")
	RedisDB = getEnvInt("REDIS_DB", 0)
	RedisKeyPrefix = getEnvString("REDIS_KEY_PREFIX", "ussd")

	// Rate Limiting
	RateLimitPerMinute = getEnvInt("USSD_RATE_LIMIT_PER_MINUTE", 10)
	RateLimitBurst = getEnvInt("USSD_RATE_LIMIT_BURST", 10)

	// Wallet Bridge
	WalletAPIURL = getEnvString("WALLET_API_URL", "")
	WalletAPISecret = getEnvString("WALLET_API_SECRET", "")
	WalletAPITimeout = getEnvDuration("WALLET_API_TIMEOUT", 10*time.Second)

	// Inbound service calls share the bridge secret unless overridden
	ServiceAPISecret = getEnvString("SERVICE_API_SECRET", WalletAPISecret)

	// SMS
	ATUsername = getEnvString("AT_USERNAME", "sandbox")
	ATAPIKey = getEnvString("AT_API_KEY", "")
	ATShortCode = getEnvString("AT_SHORT_CODE", "")
	ATSMSEndpoint = getEnvString("AT_SMS_ENDPOINT", "https://api.africastalking.com/version1/messaging")

	// Notifications
	NotifyWorkers = getEnvInt("NOTIFY_WORKERS", 4)
	NotifyQueueSize = getEnvInt("NOTIFY_QUEUE_SIZE", 256)
	NotifyMaxRetries = getEnvInt("NOTIFY_MAX_RETRIES", 3)

	// Texts
	WithdrawalCodeValidity = getEnvDuration("WITHDRAWAL_CODE_VALIDITY", 15*time.Minute)
	SupportPhone = getEnvString("SUPPORT_PHONE", "+256700000000")
	SupportSMSCode = getEnvString("SUPPORT_SMS_CODE", "6969")

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogJSON = getEnvBool("LOG_JSON", true)
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogDir = getEnvString("LOG_DIR", "logs")
}
