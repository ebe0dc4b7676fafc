package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Swap engine metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swappay_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"status"},
	)

	QuoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swappay_quote_duration_seconds",
		Help:    "Pool selection plus quote simulation duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	PoolFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swappay_pool_fallback_total",
		Help: "Quotes that fell back to the default fee tier because no pool had liquidity",
	})

	SelectedTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swappay_selected_tier_total",
			Help: "Selected fee tier per quote",
		},
		[]string{"fee"},
	)

	RoutesEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swappay_routes_encoded_total",
		Help: "Total number of router payloads encoded",
	})

	// Oracle metrics
	PriceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swappay_price_fetch_total",
			Help: "Price source attempts by source and outcome",
		},
		[]string{"source", "status"},
	)

	OracleDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swappay_oracle_degraded_total",
		Help: "Times every price source failed and the fallback price was used",
	})

	// Session metrics
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swappay_session_transitions_total",
			Help: "Session state transitions",
		},
		[]string{"from", "to"},
	)

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swappay_active_sessions",
		Help: "Sessions that have not reached a terminal state",
	})

	// Transaction metrics
	TxSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swappay_tx_submitted_total",
			Help: "Signed transactions broadcast by outcome",
		},
		[]string{"status"},
	)

	TxOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swappay_tx_outcomes_total",
			Help: "Terminal transaction states observed by the tracker",
		},
		[]string{"state"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swappay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swappay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
