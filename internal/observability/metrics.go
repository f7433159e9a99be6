package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bid attempts by outcome",
		},
		[]string{"result"},
	)

	BidRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bid_tx_retries_total",
			Help: "Bid transactions retried after a serialization conflict",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	SettledItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_settled_items_total",
			Help: "Items settled, by terminal status",
		},
		[]string{"status"},
	)

	SettleSweepLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_settle_sweep_lag_seconds",
			Help: "Age of the oldest unsettled ended item seen by the sweep",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
