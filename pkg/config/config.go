// Package config loads quoter's environment-based configuration, in the
// same manual-env-parsing-with-defaults style the teacher used (no
// viper, no struct tags): one getXOrDefault helper per scalar type, a
// single LoadFromEnv constructor, and a Validate pass enforcing the
// operator-facing floors spec §6 states for the quoting tunables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Exchange gateway (spec §6 "Environment": key id + private-key path;
	// REST base URL and streaming URL).
	ExchangeBaseURL        string
	ExchangeWSURL          string
	ExchangeKeyID          string
	ExchangePrivateKeyPath string
	ExchangeRequestTimeout time.Duration

	// Odds provider (spec §6 "consumed"); default draw odds used by
	// TheoEngine's three-way formula when a provider omits the draw line
	// (spec §4.1: "reference behavior uses decimal 20.0").
	OddsProviderBaseURL   string
	OddsProviderAPIKey    string
	OddsDefaultDrawOdds   float64
	OddsRequestTimeout    time.Duration

	// Quoting tunables (spec §6 "POST /api/settings" with floors this
	// Validate enforces; spec §4.2's edge_min and §4.3's FEE_BUFFER).
	EdgeMin            int
	RebalanceFeeBuffer int
	CheckInterval      time.Duration
	StickyResetSecs    time.Duration
	OverbidCancelDelay time.Duration

	// OrderReconciler
	ReconcilerMaxConcurrency int

	// Circuit Breaker (gates OrderReconciler's gateway calls on a rolling
	// transient-error rate, spec §7).
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerWindowSize      int
	CircuitBreakerDisableErrorRate float64
	CircuitBreakerHysteresisRatio float64

	// Market metadata cache (pkg/cache, ristretto-backed)
	CacheNumCounters int64
	CacheMaxCost     int64
	CacheBufferItems int64

	// Storage (PnLJournal's durable store, spec §6 "Persisted state")
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		ExchangeBaseURL:        getEnvOrDefault("EXCHANGE_BASE_URL", "https://api.elections.kalshi.com"),
		ExchangeWSURL:          getEnvOrDefault("EXCHANGE_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),
		ExchangeKeyID:          os.Getenv("EXCHANGE_KEY_ID"),
		ExchangePrivateKeyPath: os.Getenv("EXCHANGE_PRIVATE_KEY_PATH"),
		ExchangeRequestTimeout: getDurationOrDefault("EXCHANGE_REQUEST_TIMEOUT", 10*time.Second),

		OddsProviderBaseURL: getEnvOrDefault("ODDS_PROVIDER_BASE_URL", "https://api.the-odds-api.com"),
		OddsProviderAPIKey:  os.Getenv("ODDS_PROVIDER_API_KEY"),
		OddsDefaultDrawOdds: getFloat64OrDefault("ODDS_DEFAULT_DRAW_ODDS", 20.0),
		OddsRequestTimeout:  getDurationOrDefault("ODDS_REQUEST_TIMEOUT", 15*time.Second),

		EdgeMin:            getIntOrDefault("QUOTER_EDGE_MIN", 2),
		RebalanceFeeBuffer: getIntOrDefault("QUOTER_REBALANCE_FEE_BUFFER", 2),
		CheckInterval:      getDurationOrDefault("QUOTER_CHECK_INTERVAL", 2*time.Second),
		StickyResetSecs:    getDurationOrDefault("QUOTER_STICKY_RESET_SECS", 5*time.Second),
		OverbidCancelDelay: getDurationOrDefault("QUOTER_OVERBID_CANCEL_DELAY", 10*time.Second),

		ReconcilerMaxConcurrency: getIntOrDefault("RECONCILER_MAX_CONCURRENCY", 8),

		CircuitBreakerEnabled:          getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:    getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 30*time.Second),
		CircuitBreakerWindowSize:       getIntOrDefault("CIRCUIT_BREAKER_WINDOW_SIZE", 50),
		CircuitBreakerDisableErrorRate: getFloat64OrDefault("CIRCUIT_BREAKER_DISABLE_ERROR_RATE", 0.3),
		CircuitBreakerHysteresisRatio:  getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),

		CacheNumCounters: int64(getIntOrDefault("CACHE_NUM_COUNTERS", 100000)),
		CacheMaxCost:     int64(getIntOrDefault("CACHE_MAX_COST", 10000)),
		CacheBufferItems: int64(getIntOrDefault("CACHE_BUFFER_ITEMS", 64)),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "quoter"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "quoter"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "quoter"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid, including the
// operator-settings floors spec §6 states for check_interval (>=0.5s),
// sticky_reset_secs (>=1.0s), and overbid_cancel_delay (>=1.0s).
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.ExchangeBaseURL == "" {
		return errors.New("EXCHANGE_BASE_URL cannot be empty")
	}
	if c.ExchangeWSURL == "" {
		return errors.New("EXCHANGE_WS_URL cannot be empty")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	if c.EdgeMin < 0 {
		return fmt.Errorf("QUOTER_EDGE_MIN must be non-negative, got %d", c.EdgeMin)
	}
	if c.RebalanceFeeBuffer < 0 {
		return fmt.Errorf("QUOTER_REBALANCE_FEE_BUFFER must be non-negative, got %d", c.RebalanceFeeBuffer)
	}

	if err := CheckTunableFloors(c.CheckInterval, c.StickyResetSecs, c.OverbidCancelDelay); err != nil {
		return err
	}

	if c.ReconcilerMaxConcurrency < 1 {
		return fmt.Errorf("RECONCILER_MAX_CONCURRENCY must be at least 1, got %d", c.ReconcilerMaxConcurrency)
	}

	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerCheckInterval <= 0 {
			return errors.New("CIRCUIT_BREAKER_CHECK_INTERVAL must be positive")
		}
		if c.CircuitBreakerWindowSize <= 0 {
			return errors.New("CIRCUIT_BREAKER_WINDOW_SIZE must be positive")
		}
		if c.CircuitBreakerDisableErrorRate <= 0 || c.CircuitBreakerDisableErrorRate > 1.0 {
			return fmt.Errorf("CIRCUIT_BREAKER_DISABLE_ERROR_RATE must be in (0,1], got %f", c.CircuitBreakerDisableErrorRate)
		}
		if c.CircuitBreakerHysteresisRatio < 1.0 {
			return fmt.Errorf("CIRCUIT_BREAKER_HYSTERESIS_RATIO must be >= 1.0, got %f", c.CircuitBreakerHysteresisRatio)
		}
	}

	return nil
}

// Tunable floors the operator API's POST /api/settings enforces on a
// change request (spec §6): check_interval >= 0.5s, sticky_reset_secs >=
// 1.0s, overbid_cancel_delay >= 1.0s.
const (
	MinCheckInterval      = 500 * time.Millisecond
	MinStickyResetSecs    = 1 * time.Second
	MinOverbidCancelDelay = 1 * time.Second
)

// CheckTunableFloors validates the three operator-settable quoting
// tunables against their spec §6 floors, shared by Validate and the
// operator API's settings-update handler so both paths reject the same
// way.
func CheckTunableFloors(checkInterval, stickyReset, overbidCancelDelay time.Duration) error {
	if checkInterval < MinCheckInterval {
		return fmt.Errorf("check_interval must be >= %s, got %s", MinCheckInterval, checkInterval)
	}
	if stickyReset < MinStickyResetSecs {
		return fmt.Errorf("sticky_reset_secs must be >= %s, got %s", MinStickyResetSecs, stickyReset)
	}
	if overbidCancelDelay < MinOverbidCancelDelay {
		return fmt.Errorf("overbid_cancel_delay must be >= %s, got %s", MinOverbidCancelDelay, overbidCancelDelay)
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
