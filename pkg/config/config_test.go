package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LOG_LEVEL", "HTTP_PORT",
		"EXCHANGE_BASE_URL", "EXCHANGE_WS_URL", "EXCHANGE_KEY_ID", "EXCHANGE_PRIVATE_KEY_PATH", "EXCHANGE_REQUEST_TIMEOUT",
		"ODDS_PROVIDER_BASE_URL", "ODDS_PROVIDER_API_KEY", "ODDS_DEFAULT_DRAW_ODDS", "ODDS_REQUEST_TIMEOUT",
		"QUOTER_EDGE_MIN", "QUOTER_REBALANCE_FEE_BUFFER", "QUOTER_CHECK_INTERVAL", "QUOTER_STICKY_RESET_SECS", "QUOTER_OVERBID_CANCEL_DELAY",
		"RECONCILER_MAX_CONCURRENCY",
		"CIRCUIT_BREAKER_ENABLED", "CIRCUIT_BREAKER_CHECK_INTERVAL", "CIRCUIT_BREAKER_WINDOW_SIZE",
		"CIRCUIT_BREAKER_DISABLE_ERROR_RATE", "CIRCUIT_BREAKER_HYSTERESIS_RATIO",
		"CACHE_NUM_COUNTERS", "CACHE_MAX_COST", "CACHE_BUFFER_ITEMS",
		"STORAGE_MODE", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
	}
	for _, k := range keys {
		_ = os.Unsetenv(k)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() unexpected error: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.StorageMode != "memory" {
		t.Errorf("StorageMode = %q, want memory", cfg.StorageMode)
	}
	if cfg.EdgeMin != 2 {
		t.Errorf("EdgeMin = %d, want 2", cfg.EdgeMin)
	}
	if cfg.RebalanceFeeBuffer != 2 {
		t.Errorf("RebalanceFeeBuffer = %d, want 2", cfg.RebalanceFeeBuffer)
	}
	if cfg.CheckInterval != 2*time.Second {
		t.Errorf("CheckInterval = %s, want 2s", cfg.CheckInterval)
	}
	if cfg.StickyResetSecs != 5*time.Second {
		t.Errorf("StickyResetSecs = %s, want 5s", cfg.StickyResetSecs)
	}
	if cfg.OverbidCancelDelay != 10*time.Second {
		t.Errorf("OverbidCancelDelay = %s, want 10s", cfg.OverbidCancelDelay)
	}
	if !cfg.CircuitBreakerEnabled {
		t.Error("CircuitBreakerEnabled = false, want true")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("QUOTER_EDGE_MIN", "5")
	t.Setenv("QUOTER_CHECK_INTERVAL", "750ms")
	t.Setenv("STORAGE_MODE", "postgres")
	t.Setenv("CIRCUIT_BREAKER_ENABLED", "false")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() unexpected error: %v", err)
	}

	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.EdgeMin != 5 {
		t.Errorf("EdgeMin = %d, want 5", cfg.EdgeMin)
	}
	if cfg.CheckInterval != 750*time.Millisecond {
		t.Errorf("CheckInterval = %s, want 750ms", cfg.CheckInterval)
	}
	if cfg.StorageMode != "postgres" {
		t.Errorf("StorageMode = %q, want postgres", cfg.StorageMode)
	}
	if cfg.CircuitBreakerEnabled {
		t.Error("CircuitBreakerEnabled = true, want false")
	}
}

func TestLoadFromEnv_InvalidNumericFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUOTER_EDGE_MIN", "not-a-number")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() unexpected error: %v", err)
	}
	if cfg.EdgeMin != 2 {
		t.Errorf("EdgeMin = %d, want fallback default 2", cfg.EdgeMin)
	}
}

func TestValidate_RejectsBadStorageMode(t *testing.T) {
	cfg := baseValidConfig()
	cfg.StorageMode = "s3"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid StorageMode, got nil")
	}
}

func TestValidate_RejectsNegativeEdgeMin(t *testing.T) {
	cfg := baseValidConfig()
	cfg.EdgeMin = -1

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative EdgeMin, got nil")
	}
}

func TestValidate_TunableFloors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"check interval below floor", func(c *Config) { c.CheckInterval = 100 * time.Millisecond }, true},
		{"check interval at floor", func(c *Config) { c.CheckInterval = 500 * time.Millisecond }, false},
		{"sticky reset below floor", func(c *Config) { c.StickyResetSecs = 900 * time.Millisecond }, true},
		{"sticky reset at floor", func(c *Config) { c.StickyResetSecs = 1 * time.Second }, false},
		{"overbid delay below floor", func(c *Config) { c.OverbidCancelDelay = 999 * time.Millisecond }, true},
		{"overbid delay at floor", func(c *Config) { c.OverbidCancelDelay = 1 * time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidate_CircuitBreakerBoundsOnlyWhenEnabled(t *testing.T) {
	cfg := baseValidConfig()
	cfg.CircuitBreakerEnabled = false
	cfg.CircuitBreakerWindowSize = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled breaker should skip its own bounds check, got %v", err)
	}

	cfg.CircuitBreakerEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("enabled breaker with WindowSize=0 should fail validation")
	}
}

func TestCheckTunableFloors(t *testing.T) {
	if err := CheckTunableFloors(500*time.Millisecond, time.Second, time.Second); err != nil {
		t.Errorf("values at floor should pass, got %v", err)
	}
	if err := CheckTunableFloors(499*time.Millisecond, time.Second, time.Second); err == nil {
		t.Error("check_interval below floor should fail")
	}
}

func baseValidConfig() *Config {
	return &Config{
		LogLevel:                       "info",
		HTTPPort:                       "8080",
		ExchangeBaseURL:                "https://api.elections.kalshi.com",
		ExchangeWSURL:                  "wss://api.elections.kalshi.com/trade-api/ws/v2",
		StorageMode:                    "memory",
		EdgeMin:                        2,
		RebalanceFeeBuffer:             2,
		CheckInterval:                  2 * time.Second,
		StickyResetSecs:                5 * time.Second,
		OverbidCancelDelay:             10 * time.Second,
		ReconcilerMaxConcurrency:       8,
		CircuitBreakerEnabled:          true,
		CircuitBreakerCheckInterval:    30 * time.Second,
		CircuitBreakerWindowSize:       50,
		CircuitBreakerDisableErrorRate: 0.3,
		CircuitBreakerHysteresisRatio:  1.5,
	}
}
