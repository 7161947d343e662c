package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerEnabled indicates whether the circuit breaker allows order placement.
	CircuitBreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_circuit_breaker_enabled",
		Help: "Whether the circuit breaker allows order placement (1=enabled, 0=disabled)",
	})

	// CircuitBreakerErrorRate tracks the current transient-error rate over the rolling window.
	CircuitBreakerErrorRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_circuit_breaker_error_rate",
		Help: "Fraction of the rolling result window classified as a transient exchange error",
	})

	// CircuitBreakerDisableThreshold tracks the current error-rate threshold for disabling.
	CircuitBreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_circuit_breaker_disable_threshold",
		Help: "Transient-error rate at or above which the circuit breaker disables order placement",
	})

	// CircuitBreakerEnableThreshold tracks the current error-rate threshold for re-enabling.
	CircuitBreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_circuit_breaker_enable_threshold",
		Help: "Transient-error rate at or below which the circuit breaker re-enables order placement",
	})

	// CircuitBreakerSampleCount tracks the number of results in the rolling window.
	CircuitBreakerSampleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_circuit_breaker_sample_count",
		Help: "Number of gateway call results currently held in the rolling window",
	})

	// CircuitBreakerStateChanges tracks the number of times the circuit breaker changed state.
	CircuitBreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_circuit_breaker_state_changes_total",
		Help: "Total number of times the circuit breaker changed state (enabled/disabled)",
	})
)
