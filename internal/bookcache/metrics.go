package bookcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoter_bookcache_updates_total",
			Help: "Total number of book updates applied, by kind (snapshot|delta)",
		},
		[]string{"kind"},
	)

	TickersTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_bookcache_tickers_tracked",
		Help: "Number of tickers with a cached top-of-book",
	})

	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoter_bookcache_updates_dropped_total",
			Help: "Total number of book updates dropped due to a full notification channel",
		},
		[]string{"reason"},
	)

	RESTFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_bookcache_rest_fallback_total",
		Help: "Total number of times a cold cache fell back to a REST snapshot fetch",
	})
)
