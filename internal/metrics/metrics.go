package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's Prometheus collectors. Construct with a
// dedicated registry in tests to avoid duplicate registration.
type Metrics struct {
	BidsAdmitted     prometheus.Counter
	BidsRejected     *prometheus.CounterVec
	AuctionsResolved *prometheus.CounterVec
	Dispatches       *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BidsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auction_bids_admitted_total",
			Help: "Counter for admitted bids.",
		}),
		BidsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Counter for rejected bids by reason.",
		}, []string{"reason"}),
		AuctionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_resolutions_total",
			Help: "Counter for auction resolutions by outcome.",
		}, []string{"outcome"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_notification_dispatches_total",
			Help: "Counter for notification deliveries by channel and status.",
		}, []string{"channel", "status"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.BidsAdmitted, m.BidsRejected, m.AuctionsResolved, m.Dispatches, m.SweepDuration)
	return m
}
