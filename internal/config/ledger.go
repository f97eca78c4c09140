package config

import (
	"os"
	"strconv"
	"time"
)

type LedgerConfig struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	LockTimeout    time.Duration
	RequestTimeout time.Duration
}

type LookupConfig struct {
	CacheTTL         time.Duration
	MaxFailedLookups int
	RateLimitWindow  time.Duration
}

type SubscriptionConfig struct {
	CacheTTL time.Duration
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		MaxRetries:     getEnvAsInt("LEDGER_MAX_RETRIES", 3),
		RetryBackoff:   getEnvAsDuration("LEDGER_RETRY_BACKOFF", 50*time.Millisecond),
		LockTimeout:    getEnvAsDuration("LEDGER_LOCK_TIMEOUT", 3*time.Second),
		RequestTimeout: getEnvAsDuration("LEDGER_REQUEST_TIMEOUT", 10*time.Second),
	}
}

func LoadLookupConfig() *LookupConfig {
	return &LookupConfig{
		CacheTTL:         getEnvAsDuration("LOOKUP_CACHE_TTL", 5*time.Minute),
		MaxFailedLookups: getEnvAsInt("LOOKUP_MAX_FAILED", 20),
		RateLimitWindow:  getEnvAsDuration("LOOKUP_RATE_LIMIT_WINDOW", 15*time.Minute),
	}
}

func LoadSubscriptionConfig() *SubscriptionConfig {
	return &SubscriptionConfig{
		CacheTTL: getEnvAsDuration("SUBSCRIPTION_CACHE_TTL", 1*time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
