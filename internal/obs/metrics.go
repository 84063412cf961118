package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PendingConnections  = promauto.NewGauge(prometheus.GaugeOpts{Name: "linewire_pending_connections", Help: "Accepted connections awaiting passcode verification"})
	VerifiedConnections = promauto.NewGauge(prometheus.GaugeOpts{Name: "linewire_verified_connections", Help: "Verified connections"})
	AcceptedTotal       = promauto.NewCounter(prometheus.CounterOpts{Name: "linewire_accepted_total", Help: "Raw connections accepted"})
	AdmittedTotal       = promauto.NewCounter(prometheus.CounterOpts{Name: "linewire_admitted_total", Help: "Connections promoted to verified"})
	AbandonedTotal      = promauto.NewCounter(prometheus.CounterOpts{Name: "linewire_abandoned_total", Help: "Pending connections dropped without a valid passcode"})
	RateLimitedTotal    = promauto.NewCounter(prometheus.CounterOpts{Name: "linewire_rate_limited_total", Help: "Connections refused by the accept rate limiter"})
	MessagesTotal       = promauto.NewCounter(prometheus.CounterOpts{Name: "linewire_messages_total", Help: "Complete messages framed from verified connections"})
	EvictedTotal        = promauto.NewCounterVec(prometheus.CounterOpts{Name: "linewire_evicted_total", Help: "Verified connections evicted by reason"}, []string{"reason"})
	ErrorsTotal         = promauto.NewCounterVec(prometheus.CounterOpts{Name: "linewire_errors_total", Help: "Errors by type"}, []string{"type"})
	PeerLifetimeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{Name: "linewire_peer_lifetime_seconds", Help: "Verified connection lifetime seconds", Buckets: prometheus.ExponentialBuckets(0.01, 2, 20)})
)
