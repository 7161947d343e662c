// Package circuitbreaker implements a gateway-error-rate circuit breaker:
// it watches a rolling window of exchange call outcomes and disables order
// placement once the transient-error rate crosses a threshold, re-enabling
// with hysteresis once the rate recovers (spec §7's "Transient exchange
// error" taxonomy entry feeding a circuit breaker). Adapted from the
// teacher's balance-monitoring breaker.go: the same atomic-enabled,
// hysteresis-threshold, monitorLoop shape, re-keyed from USDC balance
// polling to exchange error classification.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/quoter/pkg/types"
)

// GatewayCircuitBreaker monitors the rolling transient-error rate of calls
// against the exchange gateway and gates whether the reconciler should keep
// placing/cancelling orders.
type GatewayCircuitBreaker struct {
	enabled atomic.Bool // lock-free read for hot-path gating

	checkInterval    time.Duration
	logger           *zap.Logger
	windowSize       int
	disableErrorRate float64
	hysteresisRatio  float64 // enable at disableErrorRate / hysteresisRatio

	mu               sync.RWMutex
	results          []bool // true = transient error; rolling window, oldest first
	lastCheck        time.Time
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval    time.Duration
	WindowSize       int     // number of recent gateway calls to retain
	DisableErrorRate float64 // trip threshold, e.g. 0.3 for 30%
	HysteresisRatio  float64 // re-enable at DisableErrorRate / HysteresisRatio; must be >= 1.0
	Logger           *zap.Logger
}

// Status holds current circuit breaker status for debugging and HTTP endpoints.
type Status struct {
	Enabled          bool
	LastCheck        time.Time
	ErrorRate        float64
	SampleCount      int
	DisableThreshold float64
	EnableThreshold  float64
}

// New creates a new circuit breaker with the given configuration.
func New(cfg *Config) (breaker *GatewayCircuitBreaker, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if cfg.DisableErrorRate <= 0 || cfg.DisableErrorRate > 1.0 {
		return nil, fmt.Errorf("disable error rate must be in (0, 1]")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	breaker = &GatewayCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		logger:           cfg.Logger,
		windowSize:       cfg.WindowSize,
		disableErrorRate: cfg.DisableErrorRate,
		hysteresisRatio:  cfg.HysteresisRatio,
		results:          make([]bool, 0, cfg.WindowSize),
		disableThreshold: cfg.DisableErrorRate,
		enableThreshold:  cfg.DisableErrorRate / cfg.HysteresisRatio,
	}

	breaker.enabled.Store(true)

	CircuitBreakerEnabled.Set(1)
	CircuitBreakerDisableThreshold.Set(breaker.disableThreshold)
	CircuitBreakerEnableThreshold.Set(breaker.enableThreshold)
	CircuitBreakerErrorRate.Set(0)
	CircuitBreakerSampleCount.Set(0)

	return breaker, nil
}

// IsEnabled returns true if order placement should proceed. Lock-free,
// safe to call from hot paths (OrderReconciler's place/cancel dispatch).
func (b *GatewayCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordResult folds one gateway call's outcome into the rolling window
// and re-evaluates the enabled/disabled state. Call this after every
// exchange gateway call the reconciler makes, passing the error it
// returned (nil on success).
func (b *GatewayCircuitBreaker) RecordResult(err error) {
	isTransient := err != nil && errors.Is(err, types.ErrTransient)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.results = append(b.results, isTransient)
	if len(b.results) > b.windowSize {
		b.results = b.results[len(b.results)-b.windowSize:]
	}
	b.lastCheck = time.Now()

	errorRate := b.errorRateLocked()
	CircuitBreakerErrorRate.Set(errorRate)
	CircuitBreakerSampleCount.Set(float64(len(b.results)))

	currentlyEnabled := b.enabled.Load()
	shouldDisable := currentlyEnabled && errorRate >= b.disableThreshold
	shouldEnable := !currentlyEnabled && errorRate <= b.enableThreshold

	switch {
	case shouldDisable:
		b.enabled.Store(false)
		CircuitBreakerEnabled.Set(0)
		CircuitBreakerStateChanges.Inc()
		b.logger.Warn("circuit-breaker-disabled",
			zap.Float64("error_rate", errorRate),
			zap.Float64("disable_threshold", b.disableThreshold))
	case shouldEnable:
		b.enabled.Store(true)
		CircuitBreakerEnabled.Set(1)
		CircuitBreakerStateChanges.Inc()
		b.logger.Info("circuit-breaker-enabled",
			zap.Float64("error_rate", errorRate),
			zap.Float64("enable_threshold", b.enableThreshold))
	}
}

func (b *GatewayCircuitBreaker) errorRateLocked() float64 {
	if len(b.results) == 0 {
		return 0
	}
	count := 0
	for _, transient := range b.results {
		if transient {
			count++
		}
	}
	return float64(count) / float64(len(b.results))
}

// Start begins the background loop that periodically logs current status.
// State transitions happen synchronously inside RecordResult; this loop
// just surfaces a heartbeat during quiet periods. Runs until ctx is
// cancelled.
func (b *GatewayCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check_interval", b.checkInterval),
		zap.Int("window_size", b.windowSize),
		zap.Float64("disable_error_rate", b.disableErrorRate),
		zap.Float64("hysteresis_ratio", b.hysteresisRatio))

	go b.monitorLoop(ctx)
}

func (b *GatewayCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			status := b.GetStatus()
			b.logger.Debug("circuit-breaker-status",
				zap.Bool("enabled", status.Enabled),
				zap.Float64("error_rate", status.ErrorRate),
				zap.Int("sample_count", status.SampleCount))
		}
	}
}

// GetStatus returns current circuit breaker status for debugging and HTTP endpoints.
func (b *GatewayCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Status{
		Enabled:          b.enabled.Load(),
		LastCheck:        b.lastCheck,
		ErrorRate:        b.errorRateLocked(),
		SampleCount:      len(b.results),
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
	}
}
