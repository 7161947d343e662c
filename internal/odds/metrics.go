package odds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchErrorsTotal tracks odds-provider fetch failures.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_odds_fetch_errors_total",
		Help: "Total number of odds-provider fetch failures",
	})

	// BlendedQuotesTotal tracks successfully blended quote sets.
	BlendedQuotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_odds_blended_total",
		Help: "Total number of successfully blended bookmaker quote sets",
	})
)
